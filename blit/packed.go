package blit

import "encoding/binary"

// copyPackedU1 is the scalar reference path: one mask byte per pixel group.
func copyPackedU1(dst []byte, dstride int, src []byte, sstride, w, h int) {
	for y := 0; y < h; y++ {
		d := dst[y*dstride:]
		s := src[y*sstride:]
		for x := 0; x < w; x++ {
			d[x*4] = s[x]
		}
	}
}

// copyPackedU4 processes four pixels per iteration: one 32-bit read of the
// mask row, four byte writes at a fixed 4-byte pixel stride. Requires w%4==0.
func copyPackedU4(dst []byte, dstride int, src []byte, sstride, w, h int) {
	groups := w >> 2
	for y := 0; y < h; y++ {
		d := dst[y*dstride:]
		s := src[y*sstride:]
		for g := 0; g < groups; g++ {
			c := binary.LittleEndian.Uint32(s[g*4:])
			d := d[g*16:]
			d[0] = byte(c)
			d[4] = byte(c >> 8)
			d[8] = byte(c >> 16)
			d[12] = byte(c >> 24)
		}
	}
}

// copyPackedU8 processes eight pixels per iteration via a 64-bit read.
// Requires w%8==0.
func copyPackedU8(dst []byte, dstride int, src []byte, sstride, w, h int) {
	groups := w >> 3
	for y := 0; y < h; y++ {
		d := dst[y*dstride:]
		s := src[y*sstride:]
		for g := 0; g < groups; g++ {
			c := binary.LittleEndian.Uint64(s[g*8:])
			d := d[g*32:]
			d[0] = byte(c)
			d[4] = byte(c >> 8)
			d[8] = byte(c >> 16)
			d[12] = byte(c >> 24)
			d[16] = byte(c >> 32)
			d[20] = byte(c >> 40)
			d[24] = byte(c >> 48)
			d[28] = byte(c >> 56)
		}
	}
}
