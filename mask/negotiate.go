package mask

import (
	"fmt"

	"github.com/zsiec/alphamask/media"
)

// DefaultFormat is the preferred output layout when downstream declares no
// constraint.
const DefaultFormat = media.FormatA420

// compositeOp selects how the mask reaches the output buffer. It is chosen
// once during negotiation (and refreshed when the mask format changes)
// instead of comparing formats on every frame.
type compositeOp int

const (
	// opPlanarCopy converts the input frame, then bulk-copies the mask's
	// luminance plane into the output's dedicated alpha plane.
	opPlanarCopy compositeOp = iota
	// opDirectAttach appends the mask's luminance plane to the input
	// buffer unchanged; valid only when input I420 + mask GRAY8 already
	// form a canonical A420 layout.
	opDirectAttach
	// opPackedBlit converts the input frame, then scatters mask bytes
	// into the leading byte of each packed 4-byte pixel group.
	opPackedBlit
)

// negotiate picks the output format, inherits geometry and timing from the
// video input and rebuilds the frame converter. On failure the element
// stays unnegotiated and refuses to emit until a later negotiation
// succeeds. Runs on the video thread only.
func (e *Element) negotiate() error {
	e.negotiated = false

	format := DefaultFormat
	if e.AllowedFormats != nil {
		if allowed := e.AllowedFormats(); allowed != nil {
			if len(allowed) == 0 {
				return fmt.Errorf("alphamask: downstream accepts no output format: %w", ErrNotNegotiated)
			}
			format = allowed[0]
		}
	}
	if !format.HasAlpha() {
		return fmt.Errorf("alphamask: downstream format %s carries no alpha: %w", format, ErrNotNegotiated)
	}

	oinfo, err := media.NewInfo(format, e.iinfo.Width, e.iinfo.Height)
	if err != nil {
		return fmt.Errorf("alphamask: building output info: %w", err)
	}
	// Only the format is genuinely renegotiated; geometry, pixel aspect
	// ratio and frame rate are inherited from the video input.
	oinfo.PAR = e.iinfo.PAR
	oinfo.FPS = e.iinfo.FPS

	if e.NewConverter == nil {
		return fmt.Errorf("alphamask: no converter factory: %w", ErrNotNegotiated)
	}

	conv, err := e.NewConverter(e.iinfo, oinfo)
	if err != nil {
		return fmt.Errorf("alphamask: cannot convert %s to %s: %w", e.iinfo.Format, oinfo.Format, err)
	}

	e.log.Debug("negotiated output format",
		"in", e.iinfo.Format.String(), "out", oinfo.Format.String(),
		"width", oinfo.Width, "height", oinfo.Height)

	e.conv = conv
	e.negotiated = true

	e.slot.mu.Lock()
	e.oinfo = oinfo
	e.updateOpLocked()
	e.slot.mu.Unlock()

	return nil
}

// updateOpLocked re-derives the composite op from the current input, mask
// and output layouts. Called with slot.mu held since the alpha thread can
// trigger it through SetAlphaInfo.
func (e *Element) updateOpLocked() {
	switch e.oinfo.Format {
	case media.FormatAYUV, media.FormatARGB:
		e.op = opPackedBlit
	default:
		if e.canDirectAttach() {
			e.op = opDirectAttach
		} else {
			e.op = opPlanarCopy
		}
	}
}

// canDirectAttach reports whether appending the mask's luminance plane to
// the input buffer yields a byte-exact canonical A420 frame.
func (e *Element) canDirectAttach() bool {
	if !e.haveAlpha || e.iinfo.Format != media.FormatI420 || e.ainfo.Format != media.FormatGray8 {
		return false
	}
	if !e.iinfo.SameGeometry(e.oinfo) || !e.ainfo.SameGeometry(e.oinfo) {
		return false
	}
	// The video planes must sit exactly where A420 expects them, and the
	// mask plane must be stride-compatible with the A420 alpha plane.
	for p := 0; p < e.iinfo.NumPlanes; p++ {
		if e.iinfo.Stride[p] != e.oinfo.Stride[p] || e.iinfo.Offset[p] != e.oinfo.Offset[p] {
			return false
		}
	}
	return e.iinfo.Size == e.oinfo.Offset[media.AlphaPlane] &&
		e.ainfo.Stride[0] == e.oinfo.Stride[media.AlphaPlane]
}
