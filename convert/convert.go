// Package convert provides a frame converter for the format pairs the
// alphamask element can negotiate: I420 input to any of the three
// alpha-bearing output layouts, plus identity passes. Geometry must match;
// scaling is not supported. RGB conversion uses the stdlib BT.601 routines
// from image/color rather than hand-rolled color math.
package convert

import (
	"fmt"
	"image/color"

	"github.com/zsiec/alphamask/media"
)

// Converter transforms a mapped source frame into a mapped destination
// frame. Implementations are stateless and safe for reuse frame-to-frame,
// but not for concurrent use on the same destination.
type Converter struct {
	in  media.Info
	out media.Info
	fn  func(dst, src *media.Frame)
}

// New builds a converter for the in/out pair, or fails when the pair is
// unsupported. This is the element's default ConverterFactory.
func New(in, out media.Info) (*Converter, error) {
	if !in.SameGeometry(out) {
		return nil, fmt.Errorf("convert: geometry mismatch %dx%d -> %dx%d",
			in.Width, in.Height, out.Width, out.Height)
	}

	c := &Converter{in: in, out: out}

	switch {
	case in.Format == out.Format:
		c.fn = copyPlanes
	case in.Format == media.FormatI420 && out.Format == media.FormatA420:
		c.fn = i420ToA420
	case in.Format == media.FormatI420 && out.Format == media.FormatAYUV:
		c.fn = i420ToAYUV
	case in.Format == media.FormatI420 && out.Format == media.FormatARGB:
		c.fn = i420ToARGB
	default:
		return nil, fmt.Errorf("convert: unsupported conversion %s -> %s", in.Format, out.Format)
	}

	return c, nil
}

// Convert fills dst from src. Both frames must match the infos the
// converter was built for.
func (c *Converter) Convert(dst, src *media.Frame) error {
	if src.Info.Format != c.in.Format || dst.Info.Format != c.out.Format {
		return fmt.Errorf("convert: frame formats %s -> %s do not match converter %s -> %s",
			src.Info.Format, dst.Info.Format, c.in.Format, c.out.Format)
	}
	c.fn(dst, src)
	return nil
}

func copyPlanes(dst, src *media.Frame) {
	for p := 0; p < src.Info.NumPlanes && p < dst.Info.NumPlanes; p++ {
		copyPlane(dst, p, src, p)
	}
}

func copyPlane(dst *media.Frame, dp int, src *media.Frame, sp int) {
	ss := src.Info.Stride[sp]
	ds := dst.Info.Stride[dp]
	h := src.Info.PlaneHeight[sp]

	if ss == ds {
		copy(dst.Plane[dp][:h*ds], src.Plane[sp][:h*ss])
		return
	}

	w := min(ss, ds)
	for y := 0; y < h; y++ {
		copy(dst.Plane[dp][y*ds:y*ds+w], src.Plane[sp][y*ss:y*ss+w])
	}
}

// i420ToA420 copies the three video planes and initializes the alpha plane
// fully opaque; the blit stage overwrites it when a mask is present.
func i420ToA420(dst, src *media.Frame) {
	for p := 0; p < 3; p++ {
		copyPlane(dst, p, src, p)
	}
	a := dst.Plane[media.AlphaPlane]
	for i := range a {
		a[i] = 0xff
	}
}

// i420ToAYUV packs 4:2:0 planar into 4:4:4 AYUV with nearest-neighbor
// chroma upsampling and opaque alpha.
func i420ToAYUV(dst, src *media.Frame) {
	w, h := src.Info.Width, src.Info.Height
	ys, us, vs := src.Info.Stride[0], src.Info.Stride[1], src.Info.Stride[2]
	ds := dst.Info.Stride[0]

	for y := 0; y < h; y++ {
		yr := src.Plane[0][y*ys:]
		ur := src.Plane[1][(y/2)*us:]
		vr := src.Plane[2][(y/2)*vs:]
		dr := dst.Plane[0][y*ds:]
		for x := 0; x < w; x++ {
			dr[x*4+0] = 0xff
			dr[x*4+1] = yr[x]
			dr[x*4+2] = ur[x/2]
			dr[x*4+3] = vr[x/2]
		}
	}
}

// i420ToARGB converts to packed ARGB using the stdlib BT.601 full-range
// YCbCr conversion, with opaque alpha.
func i420ToARGB(dst, src *media.Frame) {
	w, h := src.Info.Width, src.Info.Height
	ys, us, vs := src.Info.Stride[0], src.Info.Stride[1], src.Info.Stride[2]
	ds := dst.Info.Stride[0]

	for y := 0; y < h; y++ {
		yr := src.Plane[0][y*ys:]
		ur := src.Plane[1][(y/2)*us:]
		vr := src.Plane[2][(y/2)*vs:]
		dr := dst.Plane[0][y*ds:]
		for x := 0; x < w; x++ {
			r, g, b := color.YCbCrToRGB(yr[x], ur[x/2], vr[x/2])
			dr[x*4+0] = 0xff
			dr[x*4+1] = r
			dr[x*4+2] = g
			dr[x*4+3] = b
		}
	}
}
