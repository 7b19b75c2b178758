package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// signature + IHDR (length, type, 13 data bytes, crc)
const ihdrEnd = 8 + 4 + 4 + 13 + 4

const metersPerInch = 0.0254

// withPNGDensity inserts a pHYs chunk right after IHDR.
func withPNGDensity(data []byte, dpi int) ([]byte, error) {
	if len(data) < ihdrEnd || !bytes.Equal(data[:8], pngSignature) || string(data[12:16]) != "IHDR" {
		return nil, fmt.Errorf("not a png stream")
	}
	if dpi <= 0 {
		return data, nil
	}

	ppm := uint32(math.Round(float64(dpi) / metersPerInch))

	chunk := make([]byte, 4+4+9+4)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], ppm)
	binary.BigEndian.PutUint32(chunk[12:16], ppm)
	chunk[16] = 1 // unit: meter
	binary.BigEndian.PutUint32(chunk[17:21], crc32.ChecksumIEEE(chunk[4:17]))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, data[ihdrEnd:]...)
	return out, nil
}

// ReadPNGDensity returns the DPI stored in a pHYs chunk, if any.
func ReadPNGDensity(data []byte) (int, bool) {
	if len(data) < 8 || !bytes.Equal(data[:8], pngSignature) {
		return 0, false
	}
	for off := 8; off+8 <= len(data); {
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		end := off + 8 + length + 4
		if end > len(data) {
			return 0, false
		}
		switch typ {
		case "pHYs":
			body := data[off+8 : off+8+length]
			if length != 9 || body[8] != 1 {
				return 0, false
			}
			ppm := binary.BigEndian.Uint32(body[0:4])
			return int(math.Round(float64(ppm) * metersPerInch)), true
		case "IDAT", "IEND":
			return 0, false
		}
		off = end
	}
	return 0, false
}
