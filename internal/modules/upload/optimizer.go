package upload

import (
	"bytes"
	"fmt"
	"log"

	"github.com/disintegration/imaging"
)

// Optimizer shrinks raster images before they are stored. Formats it cannot
// re-encode without loss of meaning (GIF animation, WebP, video) pass
// through unchanged.
type Optimizer struct {
	MaxDimension int
	JPEGQuality  int
}

func NewOptimizer(maxDimension, quality int) *Optimizer {
	return &Optimizer{MaxDimension: maxDimension, JPEGQuality: quality}
}

// Optimize returns the bytes to store and whether they differ from data.
func (o *Optimizer) Optimize(data []byte, mimeType string) ([]byte, bool, error) {
	var format imaging.Format
	switch mimeType {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return data, false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	resized := false
	if o.MaxDimension > 0 && (bounds.Dx() > o.MaxDimension || bounds.Dy() > o.MaxDimension) {
		img = imaging.Fit(img, o.MaxDimension, o.MaxDimension, imaging.Lanczos)
		resized = true
	}
	// PNGs within bounds are already as good as we would make them.
	if !resized && format == imaging.PNG {
		return data, false, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(o.JPEGQuality)); err != nil {
		return nil, false, fmt.Errorf("failed to encode image: %w", err)
	}
	// Re-encoding a small, already compressed JPEG can grow it.
	if !resized && buf.Len() >= len(data) {
		return data, false, nil
	}

	log.Printf("upload_optimized mime=%s from=%dx%d to=%dx%d bytes=%d->%d",
		mimeType, bounds.Dx(), bounds.Dy(), img.Bounds().Dx(), img.Bounds().Dy(), len(data), buf.Len())
	return buf.Bytes(), true, nil
}
