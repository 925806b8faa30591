package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/cedricziel/readwhere/internal/errors"
)

// ThumbnailFormat selects the output encoding for generated thumbnails.
type ThumbnailFormat int

const (
	// ThumbnailJPEG re-encodes lossily using Options.Quality.
	ThumbnailJPEG ThumbnailFormat = iota
	// ThumbnailPNG re-encodes losslessly; Quality is ignored.
	ThumbnailPNG
)

// Options bundles the parameters of a thumbnail generation.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int // JPEG quality 1-100
	Format    ThumbnailFormat
}

// Named presets for the common thumbnail sizes. Each is a fixed
// parameter bundle; there is no per-preset logic.
var (
	PresetCover = Options{MaxWidth: 600, MaxHeight: 800, Quality: 85, Format: ThumbnailJPEG}
	PresetGrid  = Options{MaxWidth: 300, MaxHeight: 400, Quality: 80, Format: ThumbnailJPEG}
	PresetSmall = Options{MaxWidth: 120, MaxHeight: 160, Quality: 75, Format: ThumbnailJPEG}
	PresetLarge = Options{MaxWidth: 1200, MaxHeight: 1600, Quality: 90, Format: ThumbnailJPEG}
)

// FitDimensions computes the output size for a source image constrained
// to maxWidth x maxHeight while preserving aspect ratio. A source that
// already fits is returned unchanged; images are never upscaled.
func FitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}
	scale := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	// Rounding may land one pixel over the bound.
	if w > maxW {
		w = maxW
	}
	if h > maxH {
		h = maxH
	}
	return w, h
}

// Generate decodes imageBytes, scales it to fit the requested bounds
// and re-encodes it in the requested format.
func Generate(imageBytes []byte, opts Options) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, errors.Wrap(errors.KindDecode, "decode thumbnail source", err)
	}

	bounds := src.Bounds()
	w, h := FitDimensions(bounds.Dx(), bounds.Dy(), opts.MaxWidth, opts.MaxHeight)

	var out image.Image = src
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	switch opts.Format {
	case ThumbnailPNG:
		if err := png.Encode(&buf, out); err != nil {
			return nil, errors.Wrap(errors.KindDecode, "encode png thumbnail", err)
		}
	default:
		q := opts.Quality
		if q <= 0 || q > 100 {
			q = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: q}); err != nil {
			return nil, errors.Wrap(errors.KindDecode, "encode jpeg thumbnail", err)
		}
	}
	return buf.Bytes(), nil
}
