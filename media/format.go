package media

import "fmt"

// VideoFormat identifies a raw pixel memory layout.
type VideoFormat int

// Supported pixel formats. Gray8 and I420 are input-side layouts; A420,
// AYUV and ARGB are the alpha-bearing layouts the element can emit.
const (
	FormatUnknown VideoFormat = iota
	FormatGray8               // single full-resolution luminance plane
	FormatI420                // planar 4:2:0, Y + quarter-size U and V
	FormatNV12                // semi-planar 4:2:0, Y + interleaved CbCr
	FormatNV21                // semi-planar 4:2:0, Y + interleaved CrCb
	FormatA420                // I420 plus a full-resolution alpha plane
	FormatAYUV                // packed 4:4:4, A-Y-U-V byte order
	FormatARGB                // packed RGB, A-R-G-B byte order
)

var formatNames = map[VideoFormat]string{
	FormatUnknown: "unknown",
	FormatGray8:   "GRAY8",
	FormatI420:    "I420",
	FormatNV12:    "NV12",
	FormatNV21:    "NV21",
	FormatA420:    "A420",
	FormatAYUV:    "AYUV",
	FormatARGB:    "ARGB",
}

func (f VideoFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("VideoFormat(%d)", int(f))
}

// HasAlpha reports whether the layout carries per-pixel opacity.
func (f VideoFormat) HasAlpha() bool {
	return f == FormatA420 || f == FormatAYUV || f == FormatARGB
}

// LeadingLuma reports whether plane 0 is a full-resolution luminance
// plane. These are the layouts usable as a mask input, which only ever
// reads plane 0.
func (f VideoFormat) LeadingLuma() bool {
	switch f {
	case FormatGray8, FormatI420, FormatNV12, FormatNV21:
		return true
	}
	return false
}

// Packed reports whether the alpha byte is interleaved within each pixel
// group rather than stored in a dedicated plane.
func (f VideoFormat) Packed() bool {
	return f == FormatAYUV || f == FormatARGB
}

// MaxPlanes is the largest plane count any supported format uses.
const MaxPlanes = 4

// AlphaPlane is the plane index of the dedicated alpha plane in A420.
const AlphaPlane = 3

// Info describes the format, geometry and memory layout of a video stream.
// Stride, Offset and PlaneHeight are indexed by plane and are only
// meaningful for the first NumPlanes entries.
type Info struct {
	Format      VideoFormat
	Width       int
	Height      int
	PAR         Fraction // pixel aspect ratio
	FPS         Fraction // frame rate, zero when unknown
	NumPlanes   int
	Stride      [MaxPlanes]int
	Offset      [MaxPlanes]int
	PlaneHeight [MaxPlanes]int
	Size        int // total bytes for one frame
}

// NewInfo builds the canonical (tightly packed) layout for format at the
// given geometry. PAR defaults to 1:1; FPS is left unset.
func NewInfo(format VideoFormat, width, height int) (Info, error) {
	if width <= 0 || height <= 0 {
		return Info{}, fmt.Errorf("media: invalid geometry %dx%d", width, height)
	}

	info := Info{
		Format: format,
		Width:  width,
		Height: height,
		PAR:    Fraction{1, 1},
	}

	cw := (width + 1) / 2  // chroma width for 4:2:0
	ch := (height + 1) / 2 // chroma height for 4:2:0

	switch format {
	case FormatGray8:
		info.NumPlanes = 1
		info.Stride[0] = width
		info.PlaneHeight[0] = height

	case FormatNV12, FormatNV21:
		info.NumPlanes = 2
		info.Stride[0] = width
		info.PlaneHeight[0] = height
		info.Stride[1] = 2 * cw
		info.PlaneHeight[1] = ch

	case FormatI420, FormatA420:
		info.NumPlanes = 3
		info.Stride[0] = width
		info.PlaneHeight[0] = height
		info.Stride[1], info.Stride[2] = cw, cw
		info.PlaneHeight[1], info.PlaneHeight[2] = ch, ch
		if format == FormatA420 {
			info.NumPlanes = 4
			info.Stride[AlphaPlane] = width
			info.PlaneHeight[AlphaPlane] = height
		}

	case FormatAYUV, FormatARGB:
		info.NumPlanes = 1
		info.Stride[0] = 4 * width
		info.PlaneHeight[0] = height

	default:
		return Info{}, fmt.Errorf("media: unsupported format %s", format)
	}

	off := 0
	for p := 0; p < info.NumPlanes; p++ {
		info.Offset[p] = off
		off += info.Stride[p] * info.PlaneHeight[p]
	}
	info.Size = off

	return info, nil
}

// SameGeometry reports whether two infos share width and height.
func (i Info) SameGeometry(o Info) bool {
	return i.Width == o.Width && i.Height == o.Height
}
