package mask

import (
	"fmt"

	"github.com/zsiec/alphamask/media"
	"github.com/zsiec/alphamask/segment"
)

// SetVideoInfo records a new format/geometry for the video input and
// renegotiates the output format. Called on the video thread.
func (e *Element) SetVideoInfo(info media.Info) error {
	if info.Format == media.FormatUnknown || info.NumPlanes == 0 {
		return fmt.Errorf("alphamask: unparsable video format description")
	}

	e.log.Debug("video format changed",
		"format", info.Format.String(), "width", info.Width, "height", info.Height)

	e.slot.mu.Lock()
	e.iinfo = info
	e.slot.mu.Unlock()

	return e.negotiate()
}

// SetAlphaInfo records a new format/geometry for the mask input. Any layout
// whose first plane is full-resolution luminance is accepted; only that
// plane is ever read. Called on the alpha thread.
func (e *Element) SetAlphaInfo(info media.Info) error {
	if !info.Format.LeadingLuma() {
		return fmt.Errorf("alphamask: mask format %s has no leading luminance plane", info.Format)
	}

	e.log.Debug("mask format changed",
		"format", info.Format.String(), "width", info.Width, "height", info.Height)

	s := &e.slot
	s.mu.Lock()
	e.ainfo = info
	e.haveAlpha = true
	e.updateOpLocked()
	s.mu.Unlock()

	return nil
}

// VideoSegment installs a new segment for the video input. A non-time
// segment is a warning condition and leaves the tracker unchanged; either
// way the video eos/segment-done flags are reset.
func (e *Element) VideoSegment(seg segment.Segment) {
	s := &e.slot
	s.mu.Lock()
	defer s.mu.Unlock()

	s.videoEOS = false
	s.videoSegmentDone = false

	if seg.Format != segment.FormatTime {
		e.log.Warn("received non-time segment on video input")
		return
	}

	s.videoSeg = seg
	e.log.Info("video segment updated", "start", seg.Start, "stop", seg.Stop, "base", seg.Base)
}

// AlphaSegment installs a new segment for the mask input, discards any
// pending mask frame and wakes the video thread, whose wait decision may
// change with the new segment.
func (e *Element) AlphaSegment(seg segment.Segment) {
	s := &e.slot
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alphaEOS = false
	s.alphaSegmentDone = false
	s.discardLocked()

	if seg.Format != segment.FormatTime {
		e.log.Warn("received non-time segment on mask input")
		return
	}

	s.alphaSeg = seg
	e.log.Info("mask segment updated", "start", seg.Start, "stop", seg.Stop, "base", seg.Base)
	s.cond.Broadcast()
}

// VideoEOS marks the video input as finished; subsequent video buffers
// fail with ErrEOS.
func (e *Element) VideoEOS() {
	s := &e.slot
	s.mu.Lock()
	s.videoEOS = true
	s.mu.Unlock()
	e.log.Info("video EOS")
}

// AlphaEOS marks the mask input as finished and wakes the video thread so
// it stops waiting for mask frames.
func (e *Element) AlphaEOS() {
	s := &e.slot
	s.mu.Lock()
	s.alphaEOS = true
	s.cond.Broadcast()
	s.mu.Unlock()
	e.log.Info("mask EOS")
}

// VideoSegmentDone marks the video segment as fully played out.
func (e *Element) VideoSegmentDone() {
	s := &e.slot
	s.mu.Lock()
	s.videoSegmentDone = true
	s.mu.Unlock()
	e.log.Info("video segment-done")
}

// AlphaSegmentDone marks the mask segment as fully played out and wakes
// the video thread.
func (e *Element) AlphaSegmentDone() {
	s := &e.slot
	s.mu.Lock()
	s.alphaSegmentDone = true
	s.cond.Broadcast()
	s.mu.Unlock()
	e.log.Info("mask segment-done")
}

// VideoFlushStart puts the video input into flushing mode and wakes any
// blocked thread; in-flight video work is discarded.
func (e *Element) VideoFlushStart() {
	s := &e.slot
	s.mu.Lock()
	s.videoFlushing = true
	s.cond.Broadcast()
	s.mu.Unlock()
	e.log.Info("video flush start")
}

// VideoFlushStop leaves flushing mode and resets the video segment to a
// fresh time-based one.
func (e *Element) VideoFlushStop() {
	s := &e.slot
	s.mu.Lock()
	s.videoFlushing = false
	s.videoEOS = false
	s.videoSegmentDone = false
	s.videoSeg.Init(segment.FormatTime)
	s.mu.Unlock()
	e.log.Info("video flush stop")
}

// AlphaFlushStart puts the mask input into flushing mode and wakes any
// blocked thread; a blocked PushAlpha returns ErrFlushing.
func (e *Element) AlphaFlushStart() {
	s := &e.slot
	s.mu.Lock()
	s.alphaFlushing = true
	s.discardLocked()
	s.mu.Unlock()
	e.log.Info("mask flush start")
}

// AlphaFlushStop leaves flushing mode, discards any pending mask frame and
// resets the mask segment to a fresh time-based one.
func (e *Element) AlphaFlushStop() {
	s := &e.slot
	s.mu.Lock()
	s.alphaFlushing = false
	s.alphaEOS = false
	s.alphaSegmentDone = false
	s.discardLocked()
	s.alphaSeg.Init(segment.FormatTime)
	s.mu.Unlock()
	e.log.Info("mask flush stop")
}

// AlphaGap advances the mask segment position past a declared gap without
// producing a frame, then wakes the video thread: a video buffer waiting
// for the mask position to catch up can now pass through.
func (e *Element) AlphaGap(start, duration media.ClockTime) {
	if duration.Valid() {
		start += duration
	}

	s := &e.slot
	s.mu.Lock()
	s.alphaSeg.Position = start
	s.cond.Broadcast()
	s.mu.Unlock()
	e.log.Debug("mask gap, advancing position", "position", start)
}

// AlphaLinked toggles the mask-input-connected flag. Disconnecting resets
// the mask segment to an undefined format.
func (e *Element) AlphaLinked(linked bool) {
	s := &e.slot
	s.mu.Lock()
	s.alphaLinked = linked
	if !linked {
		s.alphaSeg.Init(segment.FormatUndefined)
	}
	s.mu.Unlock()

	if linked {
		e.log.Debug("mask input linked")
	} else {
		e.log.Debug("mask input unlinked")
	}
}

// Stop forces both inputs into flushing mode and discards any pending mask
// frame, guaranteeing that a thread blocked in PushVideo or PushAlpha
// wakes and exits. Part of the owning pipeline's shutdown sequence.
func (e *Element) Stop() {
	s := &e.slot
	s.mu.Lock()
	s.videoFlushing = true
	s.alphaFlushing = true
	s.discardLocked()
	s.mu.Unlock()
	e.log.Info("element stopped")
}

// Start clears the flushing and eos flags and resets both segments,
// preparing the element for (re)use after Stop.
func (e *Element) Start() {
	s := &e.slot
	s.mu.Lock()
	s.videoFlushing = false
	s.alphaFlushing = false
	s.videoEOS = false
	s.alphaEOS = false
	s.videoSeg.Init(segment.FormatTime)
	s.alphaSeg.Init(segment.FormatTime)
	s.mu.Unlock()
	e.log.Info("element started")
}
