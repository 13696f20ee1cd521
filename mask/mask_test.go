package mask

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zsiec/alphamask/convert"
	"github.com/zsiec/alphamask/media"
	"github.com/zsiec/alphamask/segment"
)

const ms = media.Millisecond

// harness wires an Element with the default converter, an 8x8 I420 video
// input at 100fps (10ms frames) and an 8x8 GRAY8 mask input, collecting
// emitted buffers.
type harness struct {
	e     *Element
	out   []*media.Buffer
	vinfo media.Info
	ainfo media.Info
}

func newHarness(t *testing.T, allowed func() []media.VideoFormat) *harness {
	t.Helper()

	h := &harness{}
	h.e = New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.e.NewConverter = func(in, out media.Info) (Converter, error) {
		return convert.New(in, out)
	}
	h.e.AllowedFormats = allowed
	h.e.Output = func(buf *media.Buffer) error {
		h.out = append(h.out, buf)
		return nil
	}

	h.e.Start()
	h.e.AlphaLinked(true)

	var err error
	h.ainfo, err = media.NewInfo(media.FormatGray8, 8, 8)
	require.NoError(t, err)
	require.NoError(t, h.e.SetAlphaInfo(h.ainfo))

	h.vinfo, err = media.NewInfo(media.FormatI420, 8, 8)
	require.NoError(t, err)
	h.vinfo.FPS = media.Fraction{Num: 100, Den: 1}
	require.NoError(t, h.e.SetVideoInfo(h.vinfo))

	return h
}

func (h *harness) videoBuf(pts, dur media.ClockTime) *media.Buffer {
	buf := &media.Buffer{Data: make([]byte, h.vinfo.Size), PTS: pts, Duration: dur}
	for i := range buf.Data {
		buf.Data[i] = byte(i)
	}
	return buf
}

func (h *harness) maskBuf(pts, dur media.ClockTime) *media.Buffer {
	buf := &media.Buffer{Data: make([]byte, h.ainfo.Size), PTS: pts, Duration: dur}
	for i := range buf.Data {
		buf.Data[i] = byte(0xa0 + i)
	}
	return buf
}

func (h *harness) pending() *pendingAlpha {
	h.e.slot.mu.Lock()
	defer h.e.slot.mu.Unlock()
	return h.e.slot.peekLocked()
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("blocked call did not return within the wait window")
		return nil
	}
}

func TestFullOverlapEmitsOneBuffer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))
	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))

	require.Len(t, h.out, 1)
	require.Equal(t, media.ClockTime(0), h.out[0].PTS)
	require.Equal(t, 10*ms, h.out[0].Duration)

	// The mask interval ends with the video interval, so it is consumed.
	require.Nil(t, h.pending())
}

func TestFutureMaskDropsVideoBuffer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(20*ms, 10*ms)))
	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))

	require.Empty(t, h.out)
	require.NotNil(t, h.pending(), "future mask frame must stay pending")
}

func TestStaleMaskDiscardedThenPassThrough(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))
	h.e.AlphaEOS()

	video := h.videoBuf(30*ms, 10*ms)
	require.NoError(t, h.e.PushVideo(video))

	require.Nil(t, h.pending(), "stale mask frame must be discarded")
	require.Len(t, h.out, 1)
	// With the mask stream at EOS the video passes through unmodified.
	require.Same(t, video, h.out[0])
}

func TestUntimedMaskUsedOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(media.ClockTimeNone, media.ClockTimeNone)))
	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))

	require.Len(t, h.out, 1)
	require.Nil(t, h.pending(), "single-shot mask frame must be dropped after use")
}

func TestVideoWithoutTimestampDiscarded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushVideo(h.videoBuf(media.ClockTimeNone, 10*ms)))
	require.Empty(t, h.out)
}

func TestVideoOutOfSegmentDiscarded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	var seg segment.Segment
	seg.Init(segment.FormatTime)
	seg.Start = 100 * ms
	h.e.VideoSegment(seg)

	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))
	require.Empty(t, h.out)

	// A stop-less buffer starting before the segment is rejected rather
	// than clipped forward.
	require.NoError(t, h.e.PushVideo(h.videoBuf(50*ms, media.ClockTimeNone)))
	require.Empty(t, h.out)
}

func TestClippedVideoKeepsClippedStamps(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	var seg segment.Segment
	seg.Init(segment.FormatTime)
	seg.Start = 5 * ms
	h.e.VideoSegment(seg)
	h.e.AlphaEOS()

	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))

	require.Len(t, h.out, 1)
	require.Equal(t, 5*ms, h.out[0].PTS)
	require.Equal(t, 5*ms, h.out[0].Duration)

	h.e.slot.mu.Lock()
	pos := h.e.slot.videoSeg.Position
	h.e.slot.mu.Unlock()
	require.Equal(t, 5*ms, pos, "segment position must advance to the clipped start")
}

func TestFlushUnblocksWaitingVideo(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushVideo(h.videoBuf(0, 10*ms))
	}()

	// No mask frame and the mask stream is still expected to produce one,
	// so the push must be parked.
	select {
	case err := <-done:
		t.Fatalf("PushVideo returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	h.e.VideoFlushStart()

	require.ErrorIs(t, waitErr(t, done), ErrFlushing)
	require.Empty(t, h.out)
}

func TestMaskArrivalUnblocksWaitingVideo(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushVideo(h.videoBuf(0, 10*ms))
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))

	require.NoError(t, waitErr(t, done))
	require.Len(t, h.out, 1)
}

func TestGapUnblocksWaitingVideo(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushVideo(h.videoBuf(0, 10*ms))
	}()

	time.Sleep(20 * time.Millisecond)
	h.e.AlphaGap(20*ms, media.ClockTimeNone)

	require.NoError(t, waitErr(t, done))
	// The mask position is past the video buffer, so it passed through.
	require.Len(t, h.out, 1)
}

func TestAlphaEOSUnblocksWaitingVideo(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushVideo(h.videoBuf(0, 10*ms))
	}()

	time.Sleep(20 * time.Millisecond)
	h.e.AlphaEOS()

	require.NoError(t, waitErr(t, done))
	require.Len(t, h.out, 1)
}

func TestBackpressureDepthOne(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushAlpha(h.maskBuf(10*ms, 10*ms))
	}()

	// The producer must stall: the slot never holds more than one frame.
	select {
	case err := <-done:
		t.Fatalf("second PushAlpha returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	require.NotNil(t, h.pending())

	// Consuming the first mask frame releases the producer.
	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))
	require.NoError(t, waitErr(t, done))

	p := h.pending()
	require.NotNil(t, p)
	require.Equal(t, 10*ms, p.start)
}

func TestVideoEOSFailsBuffers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.e.VideoEOS()
	require.ErrorIs(t, h.e.PushVideo(h.videoBuf(0, 10*ms)), ErrEOS)
}

func TestAlphaFlushingRejectsBuffers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.e.AlphaFlushStart()
	require.ErrorIs(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)), ErrFlushing)
}

func TestAlphaEOSRejectsBuffers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.e.AlphaEOS()
	require.ErrorIs(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)), ErrEOS)
}

func TestAlphaSegmentDiscardsPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))
	require.NotNil(t, h.pending())

	var seg segment.Segment
	seg.Init(segment.FormatTime)
	h.e.AlphaSegment(seg)

	require.Nil(t, h.pending())
}

func TestAlphaOutOfSegmentDiscarded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	var seg segment.Segment
	seg.Init(segment.FormatTime)
	seg.Start = 100 * ms
	h.e.AlphaSegment(seg)

	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))
	require.Nil(t, h.pending())
}

func TestAlphaUnlinkResetsSegment(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.e.AlphaLinked(false)

	h.e.slot.mu.Lock()
	format := h.e.slot.alphaSeg.Format
	h.e.slot.mu.Unlock()
	require.Equal(t, segment.FormatUndefined, format)

	// With no segment to clip against, timestamped mask buffers are
	// dropped instead of installed.
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))
	require.Nil(t, h.pending())
}

func TestStopUnblocksWaitingVideo(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushVideo(h.videoBuf(0, 10*ms))
	}()

	time.Sleep(20 * time.Millisecond)
	h.e.Stop()

	require.ErrorIs(t, waitErr(t, done), ErrFlushing)
	require.Empty(t, h.out)
}

func TestStopUnblocksWaitingAlpha(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))

	done := make(chan error, 1)
	go func() {
		done <- h.e.PushAlpha(h.maskBuf(10*ms, 10*ms))
	}()

	time.Sleep(20 * time.Millisecond)
	h.e.Stop()

	require.ErrorIs(t, waitErr(t, done), ErrFlushing)
}

func TestFlushStopResetsState(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.e.VideoFlushStart()
	h.e.AlphaFlushStart()
	h.e.VideoFlushStop()
	h.e.AlphaFlushStop()

	require.NoError(t, h.e.PushAlpha(h.maskBuf(0, 10*ms)))
	require.NoError(t, h.e.PushVideo(h.videoBuf(0, 10*ms)))
	require.Len(t, h.out, 1)
}

func TestNonTimeSegmentLeavesTrackerUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	var before segment.Segment
	h.e.slot.mu.Lock()
	before = h.e.slot.videoSeg
	h.e.slot.mu.Unlock()

	var seg segment.Segment
	seg.Init(segment.FormatUndefined)
	h.e.VideoSegment(seg)

	h.e.slot.mu.Lock()
	after := h.e.slot.videoSeg
	h.e.slot.mu.Unlock()

	require.Equal(t, before, after)
}
