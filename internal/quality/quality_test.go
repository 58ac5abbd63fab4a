package quality

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
)

func uniformGray(size int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func noisyGray(size int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}
	return img
}

// checkerboard alternates black/white per pixel, the sharpest possible edge
// pattern for the Laplacian measure.
func checkerboard(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestSharpnessFlatImagesScoreZero(t *testing.T) {
	for _, tc := range []struct {
		name string
		v    uint8
	}{
		{"all black", 0},
		{"all white", 255},
		{"mid gray", 128},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sharpness(uniformGray(64, tc.v)); got != 0 {
				t.Errorf("expected sharpness exactly 0 for flat image, got %v", got)
			}
		})
	}
}

func TestSharpnessHighForEdges(t *testing.T) {
	got := Sharpness(checkerboard(64))
	if got != 1.0 {
		t.Errorf("expected sharpness clamped to 1.0 for checkerboard, got %v", got)
	}
}

func TestSharpnessTinyImage(t *testing.T) {
	if got := Sharpness(uniformGray(2, 128)); got != 0 {
		t.Errorf("expected 0 for image smaller than 3x3, got %v", got)
	}
}

func TestBrightnessBands(t *testing.T) {
	tests := []struct {
		name string
		v    uint8
		want float64
	}{
		{"optimal mid", 128, 1.0}, // mean 0.502
		{"full black", 0, 0.0},
		{"full white", 255, 0.0},
		{"dark", 51, 0.5},    // mean 0.2, 0.2/0.4
		{"bright", 204, 0.5}, // mean 0.8, (1-0.8)/0.4
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Brightness(uniformGray(32, tc.v))
			if math.Abs(got-tc.want) > 0.02 {
				t.Errorf("brightness(%d) = %v, want ~%v", tc.v, got, tc.want)
			}
		})
	}
}

func TestScoreRange(t *testing.T) {
	crops := []*image.Gray{
		uniformGray(64, 0),
		uniformGray(64, 255),
		uniformGray(64, 128),
		noisyGray(64, 1),
		checkerboard(64),
	}
	for _, det := range []float64{-0.5, 0, 0.5, 1, 1.5} {
		for _, crop := range crops {
			s := Score(crop, det)
			for name, v := range map[string]float64{
				"sharpness":  s.Sharpness,
				"brightness": s.Brightness,
				"detection":  s.Detection,
				"overall":    s.Overall,
			} {
				if v < 0 || v > 1 {
					t.Fatalf("%s out of [0,1]: %v (det=%v)", name, v, det)
				}
			}
		}
	}
}

func TestScoreWeights(t *testing.T) {
	// Mid-gray flat crop: sharpness 0, brightness 1.
	s := Score(uniformGray(64, 128), 1.0)
	want := 0.0*0.4 + 1.0*0.3 + 1.0*0.3
	if math.Abs(s.Overall-want) > 1e-9 {
		t.Errorf("overall = %v, want %v", s.Overall, want)
	}
}

func TestScoreIsPure(t *testing.T) {
	crop := noisyGray(64, 42)
	a := Score(crop, 0.9)
	b := Score(crop, 0.9)
	if a != b {
		t.Errorf("Score is not deterministic: %+v vs %+v", a, b)
	}
}
