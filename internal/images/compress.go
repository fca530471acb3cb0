// Package images prepares uploaded profile images: it bounds their size, scales them down and
// re-encodes them as JPEG before they are stored.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

const (
	// MaxOriginalBytes is the largest upload that is accepted at all.
	MaxOriginalBytes = 5 << 20

	// MaxDimension is the longest side of a stored profile image in pixels.
	MaxDimension = 1024

	// Quality is the JPEG quality of stored profile images.
	Quality = 80

	// ContentType of every stored profile image.
	ContentType = "image/jpeg"
)

var (
	ErrTooLarge          = errors.New("image is too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Compress reads an uploaded image, scales it so that neither side exceeds MaxDimension and
// returns it JPEG encoded. Transparent areas become white.
func Compress(r io.Reader) ([]byte, error) {
	original, err := io.ReadAll(io.LimitReader(r, MaxOriginalBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read image: %w", err)
	}
	if len(original) > MaxOriginalBytes {
		return nil, ErrTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	width, height := fit(src.Bounds().Dx(), src.Bounds().Dy(), MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("could not encode image: %w", err)
	}
	return out.Bytes(), nil
}

// fit returns the dimensions of a width x height image scaled down so that its longest side is
// at most limit. Smaller images keep their size.
func fit(width int, height int, limit int) (int, int) {
	if width <= limit && height <= limit {
		return width, height
	}
	if width >= height {
		return limit, max(1, height*limit/width)
	}
	return max(1, width*limit/height), limit
}
