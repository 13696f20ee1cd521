package mask

import (
	"github.com/zsiec/alphamask/blit"
	"github.com/zsiec/alphamask/media"
)

// pushFrame emits one output buffer for the video buffer, carrying the mask
// buffer's luminance in its alpha channel. Runs unlocked on the video
// thread; op and ainfo are the caller's lock-scoped snapshots. Soft
// per-buffer failures (unmappable frames) drop the buffer and return nil.
func (e *Element) pushFrame(buf, alpha *media.Buffer, op compositeOp, ainfo media.Info) error {
	if !e.negotiated {
		e.log.Error("no output format negotiated, dropping video buffer")
		return ErrNotNegotiated
	}

	if op == opDirectAttach {
		if len(alpha.Data) >= ainfo.Size {
			out := buf.Clone()
			out.AppendPlane(alpha.Data[:ainfo.Size])
			return e.deliver(out)
		}
		// Mask buffer too small to attach; fall back to the copy path.
		e.log.Debug("mask buffer too small for direct attach",
			"have", len(alpha.Data), "need", ainfo.Size)
		op = opPlanarCopy
	}

	out := &media.Buffer{
		Data:     make([]byte, e.oinfo.Size),
		PTS:      buf.PTS,
		Duration: buf.Duration,
	}

	iframe, err := media.MapFrame(buf, e.iinfo)
	if err != nil {
		e.log.Debug("received invalid video buffer", "error", err)
		return nil
	}

	oframe, err := media.MapFrame(out, e.oinfo)
	if err != nil {
		e.log.Debug("invalid output buffer", "error", err)
		return nil
	}

	if err := e.conv.Convert(oframe, iframe); err != nil {
		e.log.Debug("frame conversion failed", "error", err)
		return nil
	}

	aframe, err := media.MapFrame(alpha, ainfo)
	if err != nil {
		// Emit the converted frame without the mask.
		e.log.Debug("received invalid mask buffer", "error", err)
		return e.deliver(out)
	}

	if op == opPackedBlit {
		blit.CopyPacked(oframe, aframe)
	} else {
		blit.CopyPlanar(oframe, media.AlphaPlane, aframe)
	}

	return e.deliver(out)
}
