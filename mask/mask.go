// Package mask implements the alphamask element: it synchronizes a primary
// video stream with an auxiliary grayscale mask stream by presentation
// time and emits video whose alpha channel carries the mask's luminance.
//
// Exactly two threads drive an Element: one calls PushVideo and the
// video-side event methods, the other calls PushAlpha and the alpha-side
// event methods. Downstream delivery happens synchronously on the video
// thread through the Output callback.
package mask

import (
	"log/slog"

	"github.com/zsiec/alphamask/media"
	"github.com/zsiec/alphamask/segment"
)

// Converter transforms a mapped input frame into a mapped output frame.
// The element owns exactly one converter, rebuilt on every successful
// negotiation and only ever touched by the video thread.
type Converter interface {
	Convert(dst, src *media.Frame) error
}

// ConverterFactory builds a converter for an input/output format pair.
type ConverterFactory func(in, out media.Info) (Converter, error)

// Element combines a video stream and a mask stream. Configure the three
// callbacks before pushing data; they must not be changed afterward.
type Element struct {
	log *slog.Logger

	// Output delivers each emitted buffer downstream. Called synchronously
	// on the video thread; its error is propagated to PushVideo's caller.
	Output func(*media.Buffer) error

	// AllowedFormats reports downstream's current output-format
	// constraint. A nil callback or a nil result means anything is
	// accepted and the element picks DefaultFormat; an empty non-nil
	// result fails negotiation; otherwise the first entry wins.
	AllowedFormats func() []media.VideoFormat

	// NewConverter builds the frame converter during negotiation.
	// Negotiation fails when it is nil or returns an error.
	NewConverter ConverterFactory

	slot alphaSlot

	// Negotiation products. conv and negotiated are touched by the video
	// thread only. iinfo and oinfo are written by the video thread under
	// slot.mu because the alpha thread reads them when re-deriving op;
	// ainfo and op can be written by the alpha thread (SetAlphaInfo) and
	// are guarded by slot.mu.
	iinfo      media.Info
	ainfo      media.Info
	haveAlpha  bool
	oinfo      media.Info
	conv       Converter
	op         compositeOp
	negotiated bool
}

// New creates an Element. If log is nil, slog.Default() is used.
func New(log *slog.Logger) *Element {
	if log == nil {
		log = slog.Default()
	}
	e := &Element{log: log.With("component", "alphamask")}
	e.slot.init()
	return e
}

// PushVideo processes one primary-stream buffer: it clips the buffer
// against the video segment, synchronizes with the pending mask frame and
// emits at most one composited output buffer. It blocks while a suitable
// mask frame could still arrive. Buffers without a usable timestamp and
// buffers outside the segment are dropped with a nil return; ErrFlushing
// and ErrEOS report the corresponding stream states.
func (e *Element) PushVideo(buf *media.Buffer) error {
	if !buf.PTS.Valid() {
		e.log.Warn("video buffer without timestamp, discarding")
		return nil
	}

	start := buf.PTS
	stop := media.ClockTimeNone
	if buf.Duration.Valid() {
		stop = start + buf.Duration
	}

	s := &e.slot
	s.mu.Lock()

	// Clip rejects a stop-less buffer that starts before the segment
	// instead of silently forcing its start forward.
	if !stop.Valid() && start < s.videoSeg.Start {
		s.mu.Unlock()
		e.log.Debug("video buffer out of segment, discarding", "pts", start)
		return nil
	}

	inSeg, clipStart, clipStop := s.videoSeg.Clip(start, stop)
	s.mu.Unlock()

	if !inSeg {
		e.log.Debug("video buffer out of segment, discarding", "pts", start)
		return nil
	}

	// Partially inside: fix up the buffer's own stamps. The unclipped
	// start/stop stay in use for running-time comparisons below.
	if clipStart != start || (stop.Valid() && clipStop != stop) {
		e.log.Debug("clipping video buffer to segment",
			"pts", clipStart, "duration", clipStop-clipStart)
		buf.PTS = clipStart
		if stop.Valid() {
			buf.Duration = clipStop - clipStart
		}
	}

	// Without a duration we still need an end estimate for the overlap
	// decision; prefer the frame rate, else assume a minimal 1ns span.
	// The estimate is never written back to the buffer.
	if !stop.Valid() {
		if d := media.FrameDuration(e.iinfo.FPS); d.Valid() {
			stop = start + d
		} else {
			stop = start + 1
		}
	}

	err := e.decide(buf, start, stop)
	if err == nil {
		s.mu.Lock()
		s.videoSeg.Position = clipStart
		s.mu.Unlock()
	}

	return err
}

// decide is the lock-protected decision loop: it re-evaluates the whole
// predicate after every wake until the buffer is emitted, dropped or the
// stream state forces a failure.
func (e *Element) decide(buf *media.Buffer, start, stop media.ClockTime) error {
	s := &e.slot

	for {
		s.mu.Lock()

		if s.videoFlushing {
			s.mu.Unlock()
			e.log.Debug("flushing, discarding video buffer")
			return ErrFlushing
		}
		if s.videoEOS {
			s.mu.Unlock()
			e.log.Debug("eos, discarding video buffer")
			return ErrEOS
		}

		p := s.peekLocked()
		if p == nil {
			wait := !(s.alphaEOS || s.alphaSegmentDone)

			// If the mask stream hasn't started contributing content at
			// this running time yet, pass the video through instead of
			// waiting for a frame that isn't coming.
			if s.alphaSeg.Format == segment.FormatTime {
				vidRT := s.videoSeg.ToRunningTime(buf.PTS)
				alphaStartRT := s.alphaSeg.ToRunningTime(s.alphaSeg.Start)
				alphaPosRT := s.alphaSeg.ToRunningTime(s.alphaSeg.Position)

				if (alphaStartRT.Valid() && vidRT < alphaStartRT) ||
					(alphaPosRT.Valid() && vidRT < alphaPosRT) {
					wait = false
				}
			}

			if wait {
				e.log.Debug("no mask buffer, waiting")
				s.cond.Wait()
				s.mu.Unlock()
				continue
			}

			s.mu.Unlock()
			e.log.Debug("no need to wait for a mask buffer, passing through")
			return e.deliver(buf)
		}

		// A mask frame without usable timing is treated as a single-shot
		// overlay: composite it onto exactly this video buffer, then drop it.
		validAlphaTime := p.buf.PTS.Valid() && p.buf.Duration.Valid()
		if !validAlphaTime {
			e.log.Warn("mask buffer with invalid timestamp or duration, using once")
		}

		vidRT := s.videoSeg.ToRunningTime(start)
		vidRTEnd := s.videoSeg.ToRunningTime(stop)

		alphaRT := media.ClockTimeNone
		alphaRTEnd := media.ClockTimeNone
		if validAlphaTime {
			alphaRT = s.alphaSeg.ToRunningTime(p.buf.PTS)
			alphaRTEnd = s.alphaSeg.ToRunningTime(p.buf.PTS + p.buf.Duration)
		}

		switch {
		case validAlphaTime && alphaRTEnd <= vidRT:
			// Mask frame ends before this video frame starts: stale.
			// Discard it and re-evaluate without consuming the buffer.
			e.log.Debug("mask buffer too old, discarding",
				"mask_end", alphaRTEnd, "video_start", vidRT)
			s.discardLocked()
			s.mu.Unlock()
			continue

		case validAlphaTime && vidRTEnd <= alphaRT:
			// Mask frame starts after this video frame ends: it belongs
			// to a later epoch. Drop the video buffer rather than
			// composite against the wrong mask.
			s.mu.Unlock()
			e.log.Warn("mask buffer in the future, dropping video buffer",
				"mask_start", alphaRT, "video_end", vidRTEnd)
			return nil

		default:
			alphaBuf := p.buf
			op := e.op
			ainfo := e.ainfo
			consumed := !validAlphaTime || alphaRTEnd <= vidRTEnd
			s.mu.Unlock()

			err := e.pushFrame(buf, alphaBuf, op, ainfo)

			if consumed {
				s.mu.Lock()
				e.log.Debug("mask buffer fully consumed, releasing")
				s.takeLocked()
				s.mu.Unlock()
			}
			return err
		}
	}
}

// PushAlpha processes one auxiliary-stream buffer: it clips the buffer
// against the alpha segment and offers it to the handoff slot, blocking
// while a previous mask frame is still unconsumed. Out-of-segment buffers
// are dropped with a nil return; buffers without timestamps are admitted
// unclipped. After a nil return the caller must not touch the buffer again.
func (e *Element) PushAlpha(buf *media.Buffer) error {
	s := &e.slot
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alphaFlushing {
		e.log.Debug("alpha flushing, rejecting mask buffer")
		return ErrFlushing
	}
	if s.alphaEOS {
		e.log.Debug("alpha eos, rejecting mask buffer")
		return ErrEOS
	}

	clipStart := buf.PTS
	clipStop := media.ClockTimeNone

	if buf.PTS.Valid() {
		stop := media.ClockTimeNone
		if buf.Duration.Valid() {
			stop = buf.PTS + buf.Duration
		}

		inSeg, cs, cst := s.alphaSeg.Clip(buf.PTS, stop)
		if !inSeg {
			e.log.Debug("mask buffer out of segment, discarding", "pts", buf.PTS)
			return nil
		}
		clipStart, clipStop = cs, cst

		buf.PTS = clipStart
		if buf.Duration.Valid() {
			buf.Duration = clipStop - clipStart
		}
	}

	if err := s.offerLocked(buf, clipStart, clipStop); err != nil {
		e.log.Debug("flushing while waiting for slot, rejecting mask buffer")
		return err
	}

	if buf.PTS.Valid() {
		s.alphaSeg.Position = clipStart
	}

	return nil
}

func (e *Element) deliver(buf *media.Buffer) error {
	if e.Output == nil {
		return nil
	}
	return e.Output(buf)
}
