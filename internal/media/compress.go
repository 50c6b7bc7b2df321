package media

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"
)

// CompressJPEG re-encodes an image so the result fits under maxKB.
// It walks a quality ladder first, then a resize ladder, and as a last
// resort halves the dimensions at quality 50. Input already under the
// limit is returned unchanged.
func CompressJPEG(data []byte, maxKB int) ([]byte, error) {
	limit := maxKB * 1024
	if len(data) <= limit {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}

	for quality := 95; quality >= 50; quality -= 10 {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("media: encode jpeg: %w", err)
		}
		if buf.Len() <= limit {
			slog.Debug("media: compressed image", "quality", quality, "bytes", buf.Len())
			return buf.Bytes(), nil
		}
	}

	bounds := img.Bounds()
	for scale := 0.9; scale >= 0.5; scale -= 0.1 {
		w := int(float64(bounds.Dx()) * scale)
		resized := imaging.Resize(img, w, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
			return nil, fmt.Errorf("media: encode jpeg: %w", err)
		}
		if buf.Len() <= limit {
			slog.Debug("media: compressed image by resize", "scale", scale, "bytes", buf.Len())
			return buf.Bytes(), nil
		}
	}

	final := imaging.Resize(img, bounds.Dx()/2, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, final, imaging.JPEG, imaging.JPEGQuality(50)); err != nil {
		return nil, fmt.Errorf("media: encode jpeg: %w", err)
	}
	slog.Debug("media: compressed image at floor settings", "bytes", buf.Len())
	return buf.Bytes(), nil
}
