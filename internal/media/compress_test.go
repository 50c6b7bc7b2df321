package media

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
)

// noisyImage defeats JPEG compression enough to force the recompression
// ladders to do real work.
func noisyImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestCompressJPEGPassthroughUnderLimit(t *testing.T) {
	data := encodeJPEG(t, noisyImage(64, 64), 80)
	out, err := CompressJPEG(data, 1024)
	if err != nil {
		t.Fatalf("CompressJPEG: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("under-limit input was re-encoded")
	}
}

func TestCompressJPEGShrinksOversizedImage(t *testing.T) {
	data := encodeJPEG(t, noisyImage(512, 512), 100)
	const maxKB = 100
	if len(data) <= maxKB*1024 {
		t.Skipf("test image only %d bytes, cannot exercise compression", len(data))
	}

	out, err := CompressJPEG(data, maxKB)
	if err != nil {
		t.Fatalf("CompressJPEG: %v", err)
	}
	if len(out) > maxKB*1024 {
		t.Errorf("compressed output %d bytes, want <= %d", len(out), maxKB*1024)
	}
	if _, err := imaging.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("compressed output not decodable: %v", err)
	}
}

func TestCompressJPEGRejectsGarbage(t *testing.T) {
	garbage := bytes.Repeat([]byte("not an image"), 100000)
	if _, err := CompressJPEG(garbage, 1); err == nil {
		t.Error("garbage input compressed without error")
	}
}
