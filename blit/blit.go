// Package blit implements the pixel-level alpha injection algorithms: a
// grayscale mask frame's luminance is written into the alpha channel of a
// target frame, either as a dedicated plane copy or as a strided scatter
// into packed 4-byte pixel groups.
package blit

import "github.com/zsiec/alphamask/media"

// CopyPlanar copies the mask's luminance plane into the target's dedicated
// alpha plane. A single bulk copy is used when source and destination row
// strides match, otherwise rows are copied one at a time.
func CopyPlanar(dst *media.Frame, plane int, src *media.Frame) {
	w := min(src.Info.Width, dst.Info.Width)
	h := min(src.Info.Height, dst.Info.PlaneHeight[plane])

	ss := src.Info.Stride[0]
	ds := dst.Info.Stride[plane]

	sp := src.Plane[0]
	dp := dst.Plane[plane]

	if ss == ds {
		copy(dp[:h*ss], sp[:h*ss])
		return
	}

	for y := 0; y < h; y++ {
		copy(dp[y*ds:y*ds+w], sp[y*ss:y*ss+w])
	}
}

// CopyPacked writes each mask luminance byte into the leading byte of the
// corresponding 4-byte pixel group in the target (AYUV and ARGB both store
// alpha first). Widths divisible by 8 take the 8-pixel wide-word path,
// widths divisible by 4 the 4-pixel path, anything else the scalar path.
// All three produce byte-identical output.
func CopyPacked(dst, src *media.Frame) {
	w := min(src.Info.Width, dst.Info.Width)
	h := min(src.Info.Height, dst.Info.Height)

	sp := src.Plane[0]
	dp := dst.Plane[0]

	ss := src.Info.Stride[0]
	ds := dst.Info.Stride[0]

	switch {
	case w&3 != 0:
		copyPackedU1(dp, ds, sp, ss, w, h)
	case w&7 != 0:
		copyPackedU4(dp, ds, sp, ss, w, h)
	default:
		copyPackedU8(dp, ds, sp, ss, w, h)
	}
}
