package rendition

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	// Formats beyond those imaging registers.
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// DefaultMaxImagePixels bounds decoded image size. A 40MP RGBA image needs
// roughly 160MB before any resizing.
const DefaultMaxImagePixels = 40_000_000

// checkDimensions reads only the image header and rejects images that are
// corrupt or larger than maxPixels.
func checkDimensions(data []byte, maxPixels int) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return image.Config{}, "", fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels)
	}
	return cfg, format, nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// resizeAndEncode fits src inside the profile box (never upscaling) and
// writes it as JPEG.
func resizeAndEncode(w io.Writer, src image.Image, p Profile) (image.Rectangle, error) {
	dst := imaging.Fit(src, p.Width, p.Height, imaging.Lanczos)
	if err := jpeg.Encode(w, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return image.Rectangle{}, fmt.Errorf("encode: %w", err)
	}
	return dst.Bounds(), nil
}
