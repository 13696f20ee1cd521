// Package pipeline couples two buffer sources, a video stream and a mask
// stream, to a single alphamask element, supervising the feeder goroutine
// per input and forwarding composited output to a sink while collecting
// counters.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/alphamask/convert"
	"github.com/zsiec/alphamask/mask"
	"github.com/zsiec/alphamask/media"
)

// Sink receives each composited buffer, synchronously on the video feeder
// goroutine.
type Sink func(*media.Buffer) error

// Config describes the streams entering a Pipeline.
type Config struct {
	VideoInfo media.Info
	AlphaInfo media.Info

	// AllowedFormats is the downstream constraint passed to the element;
	// nil picks the element's preferred default output layout.
	AllowedFormats func() []media.VideoFormat

	Sink Sink

	// Log defaults to slog.Default().
	Log *slog.Logger
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	VideoIn  int64
	AlphaIn  int64
	Emitted  int64
	Rejected int64
}

// Pipeline drives one alphamask element from two buffer channels. Close
// the channels to signal end-of-stream on the corresponding input.
type Pipeline struct {
	log *slog.Logger
	el  *mask.Element

	videoIn chan *media.Buffer
	alphaIn chan *media.Buffer

	videoFed atomic.Int64
	alphaFed atomic.Int64
	emitted  atomic.Int64
	rejected atomic.Int64
}

// New builds a Pipeline around a fresh element configured from cfg.
func New(cfg Config) (*Pipeline, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	p := &Pipeline{
		log:     log.With("component", "pipeline"),
		videoIn: make(chan *media.Buffer, 4),
		alphaIn: make(chan *media.Buffer, 4),
	}

	el := mask.New(log)
	p.el = el
	el.NewConverter = func(in, out media.Info) (mask.Converter, error) {
		return convert.New(in, out)
	}
	el.AllowedFormats = cfg.AllowedFormats
	el.Output = func(buf *media.Buffer) error {
		p.emitted.Add(1)
		if cfg.Sink == nil {
			return nil
		}
		return cfg.Sink(buf)
	}

	el.Start()
	el.AlphaLinked(true)

	if err := el.SetAlphaInfo(cfg.AlphaInfo); err != nil {
		return nil, fmt.Errorf("pipeline: mask input: %w", err)
	}
	if err := el.SetVideoInfo(cfg.VideoInfo); err != nil {
		return nil, fmt.Errorf("pipeline: video input: %w", err)
	}

	return p, nil
}

// VideoIn returns the channel feeding the primary input. Close it to send
// end-of-stream.
func (p *Pipeline) VideoIn() chan<- *media.Buffer { return p.videoIn }

// AlphaIn returns the channel feeding the mask input. Close it to send
// end-of-stream.
func (p *Pipeline) AlphaIn() chan<- *media.Buffer { return p.alphaIn }

// Element exposes the underlying element for event injection (segments,
// flushes, gaps) in tests and tools.
func (p *Pipeline) Element() *mask.Element { return p.el }

// Stats returns a point-in-time snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		VideoIn:  p.videoFed.Load(),
		AlphaIn:  p.alphaFed.Load(),
		Emitted:  p.emitted.Load(),
		Rejected: p.rejected.Load(),
	}
}

// Run feeds both inputs until their channels close or the context is
// cancelled. Cancellation stops the element, which unblocks both feeders
// within one wake cycle.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Watchdog: on cancellation (or a feeder error) force the element out
	// of any blocking wait so the feeders can exit.
	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-gctx.Done():
			p.el.Stop()
		case <-stopWatch:
		}
	}()

	g.Go(func() error { return p.feedVideo() })
	g.Go(func() error { return p.feedAlpha() })

	err := g.Wait()
	close(stopWatch)
	return err
}

func (p *Pipeline) feedVideo() error {
	for buf := range p.videoIn {
		p.videoFed.Add(1)
		err := p.el.PushVideo(buf)
		switch {
		case err == nil:
		case errors.Is(err, mask.ErrFlushing), errors.Is(err, mask.ErrEOS):
			p.rejected.Add(1)
			p.log.Info("video input done", "reason", err)
			p.drainVideo()
			return nil
		default:
			return fmt.Errorf("pipeline: video input: %w", err)
		}
	}
	p.el.VideoEOS()
	return nil
}

func (p *Pipeline) feedAlpha() error {
	for buf := range p.alphaIn {
		p.alphaFed.Add(1)
		err := p.el.PushAlpha(buf)
		switch {
		case err == nil:
		case errors.Is(err, mask.ErrFlushing), errors.Is(err, mask.ErrEOS):
			p.rejected.Add(1)
			p.log.Info("mask input done", "reason", err)
			p.drainAlpha()
			return nil
		default:
			return fmt.Errorf("pipeline: mask input: %w", err)
		}
	}
	p.el.AlphaEOS()
	return nil
}

// drainVideo discards remaining queued buffers so producers blocked on the
// channel are released during shutdown.
func (p *Pipeline) drainVideo() {
	for range p.videoIn {
		p.rejected.Add(1)
	}
}

func (p *Pipeline) drainAlpha() {
	for range p.alphaIn {
		p.rejected.Add(1)
	}
}
