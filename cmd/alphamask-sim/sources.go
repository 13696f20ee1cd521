package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/zsiec/alphamask/media"
)

// videoFrame renders frame i of a scrolling I420 gradient test pattern.
func videoFrame(info media.Info, i int, dur media.ClockTime) *media.Buffer {
	buf := &media.Buffer{
		Data:     make([]byte, info.Size),
		PTS:      media.ClockTime(i) * dur,
		Duration: dur,
	}

	w, h := info.Width, info.Height
	yp := buf.Data[info.Offset[0]:]
	up := buf.Data[info.Offset[1]:]
	vp := buf.Data[info.Offset[2]:]

	for y := 0; y < h; y++ {
		row := yp[y*info.Stride[0]:]
		for x := 0; x < w; x++ {
			row[x] = byte(x + y + i*4)
		}
	}

	cw, ch := (w+1)/2, (h+1)/2
	for y := 0; y < ch; y++ {
		ur := up[y*info.Stride[1]:]
		vr := vp[y*info.Stride[2]:]
		for x := 0; x < cw; x++ {
			ur[x] = byte(128 + x - cw/2)
			vr[x] = byte(128 + y - ch/2)
		}
	}

	return buf
}

// maskFrame renders frame i of a circular wipe: a filled circle that grows
// from the center until it covers the frame on the last frame.
func maskFrame(info media.Info, i, frames int, dur media.ClockTime) *media.Buffer {
	buf := &media.Buffer{
		Data:     make([]byte, info.Size),
		PTS:      media.ClockTime(i) * dur,
		Duration: dur,
	}

	w, h := info.Width, info.Height
	cx, cy := w/2, h/2
	maxR2 := cx*cx + cy*cy
	r2 := maxR2 * (i + 1) / frames

	for y := 0; y < h; y++ {
		row := buf.Data[y*info.Stride[0]:]
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r2 {
				row[x] = 0xff
			}
		}
	}

	return buf
}

// decodeFrame converts an emitted buffer back into an RGBA image for the
// PNG dump. Alpha is carried through so transparency survives inspection.
func decodeFrame(buf *media.Buffer, format media.VideoFormat, width, height int) (image.Image, error) {
	info, err := media.NewInfo(format, width, height)
	if err != nil {
		return nil, err
	}

	frame, err := media.MapFrame(buf, info)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	switch format {
	case media.FormatA420:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				yy := frame.Plane[0][y*info.Stride[0]+x]
				cb := frame.Plane[1][(y/2)*info.Stride[1]+x/2]
				cr := frame.Plane[2][(y/2)*info.Stride[2]+x/2]
				a := frame.Plane[media.AlphaPlane][y*info.Stride[media.AlphaPlane]+x]
				r, g, b := color.YCbCrToRGB(yy, cb, cr)
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: a})
			}
		}

	case media.FormatAYUV:
		for y := 0; y < height; y++ {
			row := frame.Plane[0][y*info.Stride[0]:]
			for x := 0; x < width; x++ {
				px := row[x*4:]
				r, g, b := color.YCbCrToRGB(px[1], px[2], px[3])
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: px[0]})
			}
		}

	case media.FormatARGB:
		for y := 0; y < height; y++ {
			row := frame.Plane[0][y*info.Stride[0]:]
			for x := 0; x < width; x++ {
				px := row[x*4:]
				img.SetRGBA(x, y, color.RGBA{R: px[1], G: px[2], B: px[3], A: px[0]})
			}
		}

	default:
		return nil, fmt.Errorf("cannot decode format %s", format)
	}

	return img, nil
}
