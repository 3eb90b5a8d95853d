package recognizer

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func encodeTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestDownscaleImage(t *testing.T) {
	data := encodeTestImage(t, 400, 200)

	resized, err := DownscaleImage(data, 100)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("decoding resized image: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50 (aspect kept), got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDownscaleImageSmallEnough(t *testing.T) {
	data := encodeTestImage(t, 80, 60)

	resized, err := DownscaleImage(data, 100)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("decoding image: %v", err)
	}
	if img.Bounds().Dx() != 80 || img.Bounds().Dy() != 60 {
		t.Errorf("image within the limit must keep its size, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDownscaleImageRejectsGarbage(t *testing.T) {
	if _, err := DownscaleImage([]byte("not an image"), 100); err == nil {
		t.Error("expected a decode error")
	}
}
