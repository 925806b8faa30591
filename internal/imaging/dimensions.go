package imaging

import (
	"bytes"
	"encoding/binary"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/cedricziel/readwhere/internal/errors"
)

// Dimensions reads image width and height from format headers without
// decoding pixel data. PNG, JPEG, GIF and BMP take the fast path; other
// formats (notably WebP, whose size lives in per-codec chunks) return a
// decode-kind error so callers can decide whether a full decode is
// worth it. Use DecodeDimensions for the expensive fallback.
func Dimensions(data []byte) (width, height int, err error) {
	switch DetectFormat(data) {
	case FormatPNG:
		return pngDimensions(data)
	case FormatJPEG:
		return jpegDimensions(data)
	case FormatGIF:
		return gifDimensions(data)
	case FormatBMP:
		return bmpDimensions(data)
	default:
		return 0, 0, errors.New(errors.KindDecode, "no header fast path for this format")
	}
}

// DecodeDimensions determines dimensions via a full image decode. This
// is the expensive fallback; callers opt in explicitly.
func DecodeDimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, errors.Wrap(errors.KindDecode, "decode image config", err)
	}
	return cfg.Width, cfg.Height, nil
}

// CanDecode reports whether the bytes parse as an image this module can
// decode. It is a side-effect-free probe over the header only.
func CanDecode(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

// pngDimensions reads the IHDR chunk, which the PNG spec requires to be
// first: width and height are big-endian uint32 at offsets 16 and 20.
func pngDimensions(data []byte) (int, int, error) {
	if len(data) < 24 || string(data[12:16]) != "IHDR" {
		return 0, 0, errors.New(errors.KindDecode, "png: truncated or missing IHDR")
	}
	w := binary.BigEndian.Uint32(data[16:20])
	h := binary.BigEndian.Uint32(data[20:24])
	return int(w), int(h), nil
}

// jpegDimensions scans marker segments for a start-of-frame marker and
// reads the dimensions from it.
func jpegDimensions(data []byte) (int, int, error) {
	i := 2 // past SOI
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return 0, 0, errors.New(errors.KindDecode, "jpeg: marker sync lost")
		}
		marker := data[i+1]
		// Standalone markers without a length field.
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if isSOFMarker(marker) {
			if i+9 > len(data) {
				break
			}
			h := int(binary.BigEndian.Uint16(data[i+5 : i+7]))
			w := int(binary.BigEndian.Uint16(data[i+7 : i+9]))
			return w, h, nil
		}
		if marker == 0xDA { // start of scan, no SOF seen
			break
		}
		i += 2 + segLen
	}
	return 0, 0, errors.New(errors.KindDecode, "jpeg: no start-of-frame marker")
}

// isSOFMarker reports whether marker is a start-of-frame (SOF0-SOF15,
// excluding DHT, JPG extension and DAC which share the range).
func isSOFMarker(m byte) bool {
	return m >= 0xC0 && m <= 0xCF && m != 0xC4 && m != 0xC8 && m != 0xCC
}

// gifDimensions reads the logical screen descriptor: little-endian
// uint16 pairs at offsets 6 and 8.
func gifDimensions(data []byte) (int, int, error) {
	if len(data) < 10 {
		return 0, 0, errors.New(errors.KindDecode, "gif: truncated header")
	}
	w := binary.LittleEndian.Uint16(data[6:8])
	h := binary.LittleEndian.Uint16(data[8:10])
	return int(w), int(h), nil
}

// bmpDimensions reads the BITMAPINFOHEADER: signed little-endian int32
// pairs at offsets 18 and 22. A negative height encodes top-down rows.
func bmpDimensions(data []byte) (int, int, error) {
	if len(data) < 26 {
		return 0, 0, errors.New(errors.KindDecode, "bmp: truncated header")
	}
	w := int(int32(binary.LittleEndian.Uint32(data[18:22])))
	h := int(int32(binary.LittleEndian.Uint32(data[22:26])))
	if h < 0 {
		h = -h
	}
	if w < 0 {
		return 0, 0, errors.New(errors.KindDecode, "bmp: negative width")
	}
	return w, h, nil
}
