package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img, err := Decode(encodePNG(t, src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("expected error for invalid image data")
	}
}

func TestCropBBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	crop, err := CropBBox(src, [4]int{10, 20, 50, 60})
	if err != nil {
		t.Fatalf("CropBBox: %v", err)
	}
	if crop.Bounds().Dx() != 40 || crop.Bounds().Dy() != 40 {
		t.Errorf("unexpected crop size %v", crop.Bounds())
	}
}

func TestCropBBoxClampsToImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	crop, err := CropBBox(src, [4]int{-10, -10, 200, 200})
	if err != nil {
		t.Fatalf("CropBBox: %v", err)
	}
	if crop.Bounds().Dx() != 50 || crop.Bounds().Dy() != 50 {
		t.Errorf("expected clamped 50x50 crop, got %v", crop.Bounds())
	}
}

func TestCropBBoxDegenerate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if _, err := CropBBox(src, [4]int{30, 10, 30, 40}); err == nil {
		t.Fatal("expected error for x1 == x2")
	}
	if _, err := CropBBox(src, [4]int{100, 100, 200, 200}); err == nil {
		t.Fatal("expected error for box outside image")
	}
}

func TestGrayscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			src.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	gray := Grayscale(src)
	if gray.Bounds().Dx() != 20 || gray.Bounds().Dy() != 20 {
		t.Errorf("unexpected bounds %v", gray.Bounds())
	}
	if got := gray.GrayAt(10, 10).Y; got < 120 || got > 136 {
		t.Errorf("expected mid-gray pixel, got %d", got)
	}
}

func TestGrayscaleDownscalesLargeCrops(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2048, 1024))
	gray := Grayscale(src)
	if gray.Bounds().Dx() != 512 || gray.Bounds().Dy() != 256 {
		t.Errorf("expected 512x256 after downscale, got %v", gray.Bounds())
	}
}
