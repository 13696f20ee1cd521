package mask

import (
	"sync"

	"github.com/zsiec/alphamask/media"
	"github.com/zsiec/alphamask/segment"
)

// pendingAlpha is the single in-flight mask frame handed from the alpha
// thread to the video thread, with its segment-clipped interval.
type pendingAlpha struct {
	buf   *media.Buffer
	start media.ClockTime
	stop  media.ClockTime
}

// alphaSlot is the one-item handoff slot between the two input threads,
// plus every other piece of state both threads touch: the per-input status
// flags and both segment trackers. Everything here is guarded by mu; wakes
// are always broadcast because three distinct wait reasons share the one
// condition variable (the alpha producer waiting for room, the video
// consumer waiting for a mask frame, and shutdown).
type alphaSlot struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending *pendingAlpha

	videoFlushing    bool
	videoEOS         bool
	videoSegmentDone bool

	alphaFlushing    bool
	alphaEOS         bool
	alphaSegmentDone bool

	// alphaLinked is connection state tracked for completeness; nothing
	// reads it since there is no event forwarding to gate. The observable
	// effect of unlinking is the segment reset in AlphaLinked.
	alphaLinked bool

	videoSeg segment.Segment
	alphaSeg segment.Segment
}

func (s *alphaSlot) init() {
	s.cond = sync.NewCond(&s.mu)
	s.videoSeg.Init(segment.FormatTime)
	s.alphaSeg.Init(segment.FormatTime)
}

// offerLocked blocks until the slot is empty, then installs buf as the
// pending mask frame and wakes any waiter. It returns ErrFlushing if the
// alpha input starts flushing while blocked. Must be called with mu held;
// on success the caller has transferred ownership of buf to the slot.
func (s *alphaSlot) offerLocked(buf *media.Buffer, start, stop media.ClockTime) error {
	for s.pending != nil {
		s.cond.Wait()
		if s.alphaFlushing {
			return ErrFlushing
		}
	}

	s.pending = &pendingAlpha{buf: buf, start: start, stop: stop}
	s.cond.Broadcast()
	return nil
}

// peekLocked returns the pending mask frame without removing it. Must be
// called with mu held.
func (s *alphaSlot) peekLocked() *pendingAlpha {
	return s.pending
}

// discardLocked drops the pending mask frame if present and wakes any
// waiter, letting a blocked alpha producer reuse the slot. Must be called
// with mu held.
func (s *alphaSlot) discardLocked() {
	s.pending = nil
	s.cond.Broadcast()
}

// takeLocked removes and returns the pending mask frame, waking any
// waiter. Must be called with mu held.
func (s *alphaSlot) takeLocked() *pendingAlpha {
	p := s.pending
	s.pending = nil
	if p != nil {
		s.cond.Broadcast()
	}
	return p
}
