// Command alphamask-sim generates a synthetic video stream and a synthetic
// grayscale mask stream, runs them through the alphamask pipeline and
// reports what came out. With OUT_PNG set, the first composited frame is
// decoded to RGBA and written as a PNG for visual inspection.
package main

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/alphamask/media"
	"github.com/zsiec/alphamask/pipeline"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	width := envInt("WIDTH", 320)
	height := envInt("HEIGHT", 240)
	frames := envInt("FRAMES", 120)
	outPNG := os.Getenv("OUT_PNG")

	format, ok := parseFormat(envOr("FORMAT", "A420"))
	if !ok {
		slog.Error("unknown output format", "format", os.Getenv("FORMAT"))
		os.Exit(1)
	}

	fps := media.Fraction{Num: 30, Den: 1}

	videoInfo, err := media.NewInfo(media.FormatI420, width, height)
	if err != nil {
		slog.Error("building video info", "error", err)
		os.Exit(1)
	}
	videoInfo.FPS = fps

	maskInfo, err := media.NewInfo(media.FormatGray8, width, height)
	if err != nil {
		slog.Error("building mask info", "error", err)
		os.Exit(1)
	}
	maskInfo.FPS = fps

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	var firstOut *media.Buffer

	p, err := pipeline.New(pipeline.Config{
		VideoInfo: videoInfo,
		AlphaInfo: maskInfo,
		AllowedFormats: func() []media.VideoFormat {
			return []media.VideoFormat{format}
		},
		Sink: func(buf *media.Buffer) error {
			if firstOut == nil {
				firstOut = buf
			}
			return nil
		},
	})
	if err != nil {
		slog.Error("building pipeline", "error", err)
		os.Exit(1)
	}

	slog.Info("alphamask-sim starting",
		"frames", frames,
		"geometry", fmt.Sprintf("%dx%d", width, height),
		"format", format.String(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.Run(gctx)
	})

	dur := media.FrameDuration(fps)

	g.Go(func() error {
		defer close(p.VideoIn())
		for i := 0; i < frames; i++ {
			select {
			case <-gctx.Done():
				return nil
			case p.VideoIn() <- videoFrame(videoInfo, i, dur):
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(p.AlphaIn())
		for i := 0; i < frames; i++ {
			select {
			case <-gctx.Done():
				return nil
			case p.AlphaIn() <- maskFrame(maskInfo, i, frames, dur):
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("pipeline error", "error", err)
		os.Exit(1)
	}

	stats := p.Stats()
	slog.Info("done",
		"video_in", stats.VideoIn,
		"mask_in", stats.AlphaIn,
		"emitted", stats.Emitted,
		"rejected", stats.Rejected,
	)

	if outPNG != "" && firstOut != nil {
		if err := writePNG(outPNG, firstOut, format, width, height); err != nil {
			slog.Error("writing png", "error", err)
			os.Exit(1)
		}
		slog.Info("wrote composited frame", "path", outPNG)
	}
}

func writePNG(path string, buf *media.Buffer, format media.VideoFormat, width, height int) error {
	img, err := decodeFrame(buf, format, width, height)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

func parseFormat(name string) (media.VideoFormat, bool) {
	switch name {
	case "A420":
		return media.FormatA420, true
	case "AYUV":
		return media.FormatAYUV, true
	case "ARGB":
		return media.FormatARGB, true
	}
	return media.FormatUnknown, false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer", "key", key, "value", v)
		return fallback
	}
	return n
}
