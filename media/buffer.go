package media

import "fmt"

// Buffer is a single timestamped chunk of raw pixel data. PTS and Duration
// are ClockTimeNone when the producer did not stamp the buffer.
type Buffer struct {
	Data     []byte
	PTS      ClockTime
	Duration ClockTime
}

// Clone returns a deep copy of the buffer, including its timing metadata.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{Data: data, PTS: b.PTS, Duration: b.Duration}
}

// AppendPlane grows the buffer by one memory region, used by the
// direct-attach emission path to turn an I420 buffer into A420 by tacking
// the mask's luminance plane onto the end.
func (b *Buffer) AppendPlane(plane []byte) {
	b.Data = append(b.Data, plane...)
}

// Frame is a per-plane view into a mapped buffer. Plane slices alias the
// buffer's Data; writing through them mutates the buffer.
type Frame struct {
	Info  Info
	Plane [][]byte
}

// MapFrame interprets buf's bytes using the layout in info. It fails when
// the buffer is too small for the described layout, which callers treat as
// an invalid (unmappable) frame and drop.
func MapFrame(buf *Buffer, info Info) (*Frame, error) {
	if info.NumPlanes == 0 {
		return nil, fmt.Errorf("media: cannot map frame with empty info")
	}
	if len(buf.Data) < info.Size {
		return nil, fmt.Errorf("media: buffer too small for %s %dx%d: have %d bytes, need %d",
			info.Format, info.Width, info.Height, len(buf.Data), info.Size)
	}

	f := &Frame{Info: info, Plane: make([][]byte, info.NumPlanes)}
	for p := 0; p < info.NumPlanes; p++ {
		end := info.Offset[p] + info.Stride[p]*info.PlaneHeight[p]
		f.Plane[p] = buf.Data[info.Offset[p]:end:end]
	}
	return f, nil
}
