package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes is the largest upload accepted (20MB, the Gemini inline limit).
const MaxImageBytes = 20 * 1024 * 1024

// AllowedExtensions lists the accepted upload extensions in display order.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"}

// IsAllowedExtension reports whether name has an extension from AllowedExtensions.
// The comparison is case-insensitive and only the text after the last dot counts.
func IsAllowedExtension(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	ext := strings.ToLower(name[idx+1:])
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// DecodeImage reads at most MaxImageBytes from r and decodes it.
func DecodeImage(r io.Reader, filename string) (*ImageInput, error) {
	const op = "DecodeImage"

	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to read image data")
	}
	if len(data) > MaxImageBytes {
		return nil, NewExtractionError(op, ErrImageTooLarge, fmt.Sprintf("file: %s", filename))
	}
	if len(data) == 0 {
		return nil, NewExtractionError(op, ErrImageDecode, "empty file")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, NewExtractionError(op, ErrImageDecode, err.Error())
	}

	return &ImageInput{
		Image:  img,
		Ext:    strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		Format: format,
	}, nil
}

// EncodePNG encodes img as PNG. The output is deterministic for a given image.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, NewExtractionError("EncodePNG", ErrImageDecode, err.Error())
	}
	return buf.Bytes(), nil
}

// Downscale returns img scaled so its longest side is at most maxDim.
// Images already within bounds are returned unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	scale := float64(maxDim) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
