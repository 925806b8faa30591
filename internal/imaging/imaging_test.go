package imaging

import (
	"bytes"
	"context"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, format Format, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, nil)
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		t.Fatalf("unsupported test format %v", format)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{name: "png", data: encodeTestImage(t, FormatPNG, 4, 4), want: FormatPNG},
		{name: "jpeg", data: encodeTestImage(t, FormatJPEG, 4, 4), want: FormatJPEG},
		{name: "gif", data: encodeTestImage(t, FormatGIF, 4, 4), want: FormatGIF},
		{name: "webp riff header", data: append([]byte("RIFF\x00\x00\x00\x00WEBP"), 0), want: FormatWebP},
		{name: "garbage", data: []byte("not an image at all"), want: FormatUnknown},
		{name: "empty", data: nil, want: FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func TestDimensionsFastPath(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		w, h   int
	}{
		{name: "png", format: FormatPNG, w: 31, h: 17},
		{name: "jpeg", format: FormatJPEG, w: 64, h: 48},
		{name: "gif", format: FormatGIF, w: 12, h: 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeTestImage(t, tt.format, tt.w, tt.h)
			w, h, err := Dimensions(data)
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)

			// Fast path and full decode must agree.
			dw, dh, err := DecodeDimensions(data)
			require.NoError(t, err)
			assert.Equal(t, w, dw)
			assert.Equal(t, h, dh)
		})
	}
}

func TestDimensionsGarbage(t *testing.T) {
	_, _, err := Dimensions([]byte("definitely not pixels"))
	assert.Error(t, err)
	assert.False(t, CanDecode([]byte("definitely not pixels")))
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, maxW, maxH int
		wantW, wantH           int
	}{
		{name: "already fits is unchanged", srcW: 50, srcH: 50, maxW: 200, maxH: 200, wantW: 50, wantH: 50},
		{name: "scale down by width", srcW: 400, srcH: 200, maxW: 100, maxH: 100, wantW: 100, wantH: 50},
		{name: "scale down by height", srcW: 200, srcH: 400, maxW: 100, maxH: 100, wantW: 50, wantH: 100},
		{name: "exact bound untouched", srcW: 100, srcH: 100, maxW: 100, maxH: 100, wantW: 100, wantH: 100},
		{name: "tall page", srcW: 1000, srcH: 1600, maxW: 300, maxH: 400, wantW: 250, wantH: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitDimensions(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestGenerateNeverUpscalesOrExceedsBounds(t *testing.T) {
	src := encodeTestImage(t, FormatPNG, 50, 50)
	out, err := Generate(src, Options{MaxWidth: 200, MaxHeight: 200, Format: ThumbnailPNG})
	require.NoError(t, err)
	w, h, err := DecodeDimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 50, w)
	assert.Equal(t, 50, h)

	src = encodeTestImage(t, FormatJPEG, 800, 600)
	out, err = Generate(src, PresetSmall)
	require.NoError(t, err)
	w, h, err = DecodeDimensions(out)
	require.NoError(t, err)
	assert.LessOrEqual(t, w, PresetSmall.MaxWidth)
	assert.LessOrEqual(t, h, PresetSmall.MaxHeight)

	// Aspect ratio preserved within rounding tolerance.
	assert.InDelta(t, 800.0/600.0, float64(w)/float64(h), 0.05)
}

func TestGenerateDecodeError(t *testing.T) {
	_, err := Generate([]byte("nope"), PresetGrid)
	assert.Error(t, err)
}

type stubPageSource struct {
	pages map[int][]byte
}

func (s *stubPageSource) PageBytes(_ context.Context, index int) ([]byte, error) {
	return s.pages[index], nil
}

func TestServiceGeneratePages(t *testing.T) {
	src := &stubPageSource{pages: map[int][]byte{
		0: encodeTestImage(t, FormatJPEG, 300, 400),
		1: encodeTestImage(t, FormatPNG, 200, 200),
		2: []byte("broken page"),
	}}

	svc := NewService(2)
	thumbs, err := svc.GeneratePages(context.Background(), src, []int{0, 1, 2}, PresetGrid)
	require.NoError(t, err)

	// The broken page is skipped, not fatal.
	assert.Len(t, thumbs, 2)
	for _, th := range thumbs {
		w, h, err := DecodeDimensions(th.Data)
		require.NoError(t, err)
		assert.LessOrEqual(t, w, PresetGrid.MaxWidth)
		assert.LessOrEqual(t, h, PresetGrid.MaxHeight)
	}
}
