// Package decodertest builds small encoded images for tests.
package decodertest

import (
	"bytes"
	"encoding/binary"
)

// RGB returns an uncompressed, single-strip, little-endian baseline TIFF
// holding w×h pixels of 8-bit interleaved RGB. pix must be w*h*3 bytes.
func RGB(w, h int, pix []byte) []byte {
	const (
		ifdOffset  = 8
		numEntries = 10
		ifdSize    = 2 + numEntries*12 + 4
		bpsOffset  = ifdOffset + ifdSize
		dataOffset = bpsOffset + 6
	)
	const (
		tShort = 3
		tLong  = 4
	)

	var buf bytes.Buffer
	le := binary.LittleEndian
	put16 := func(v uint16) { binary.Write(&buf, le, v) }
	put32 := func(v uint32) { binary.Write(&buf, le, v) }
	entry := func(tag, typ uint16, count, value uint32) {
		put16(tag)
		put16(typ)
		put32(count)
		put32(value)
	}

	buf.WriteString("II")
	put16(42)
	put32(ifdOffset)

	put16(numEntries)
	entry(256, tShort, 1, uint32(w))       // ImageWidth
	entry(257, tShort, 1, uint32(h))       // ImageLength
	entry(258, tShort, 3, bpsOffset)       // BitsPerSample
	entry(259, tShort, 1, 1)               // Compression: none
	entry(262, tShort, 1, 2)               // PhotometricInterpretation: RGB
	entry(273, tLong, 1, dataOffset)       // StripOffsets
	entry(277, tShort, 1, 3)               // SamplesPerPixel
	entry(278, tShort, 1, uint32(h))       // RowsPerStrip
	entry(279, tLong, 1, uint32(len(pix))) // StripByteCounts
	entry(284, tShort, 1, 1)               // PlanarConfiguration: chunky
	put32(0)

	put16(8)
	put16(8)
	put16(8)
	buf.Write(pix)
	return buf.Bytes()
}
