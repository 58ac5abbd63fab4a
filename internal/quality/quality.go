// Package quality scores face crops for enrollment suitability.
//
// Sharpness uses the variance of the Laplacian response on the grayscale
// crop, the standard blur measure for attendance photos. Brightness scores
// mean luminance against an optimal [0.4, 0.6] band. The overall score is a
// fixed weighted sum of sharpness, brightness and detector confidence.
package quality

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

const (
	// sharpnessNorm is the empirical Laplacian variance of a good face
	// crop; variance is divided by it and clamped to [0,1].
	sharpnessNorm = 500.0

	// Optimal mean luminance band. Inside it brightness scores 1.0, and
	// it falls off linearly to 0 at luminance 0 and 1.
	brightnessLow  = 0.4
	brightnessHigh = 0.6

	// Overall weights. Sharpness dominates because blur is the primary
	// failure mode of attendance photos.
	weightSharpness  = 0.4
	weightBrightness = 0.3
	weightDetection  = 0.3
)

// Scores holds the component and combined quality scores, all in [0,1].
type Scores struct {
	Sharpness  float64 `json:"sharpness"`
	Brightness float64 `json:"brightness"`
	Detection  float64 `json:"face_score"`
	Overall    float64 `json:"overall"`
}

// Score computes quality scores for a grayscale face crop. detScore is the
// detector's confidence for the face. Pure function of the pixel data.
func Score(crop *image.Gray, detScore float64) Scores {
	s := Scores{
		Sharpness:  Sharpness(crop),
		Brightness: Brightness(crop),
		Detection:  clamp01(detScore),
	}
	s.Overall = clamp01(s.Sharpness*weightSharpness + s.Brightness*weightBrightness + s.Detection*weightDetection)
	return s
}

// Sharpness returns the normalized Laplacian variance of the crop.
// Flat crops (all-black, all-white) score exactly 0.
func Sharpness(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	// 4-neighbor Laplacian over interior pixels.
	responses := make([]float64, 0, (w-2)*(h-2))
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			center := float64(img.GrayAt(x, y).Y)
			lap := 4*center -
				float64(img.GrayAt(x, y-1).Y) -
				float64(img.GrayAt(x, y+1).Y) -
				float64(img.GrayAt(x-1, y).Y) -
				float64(img.GrayAt(x+1, y).Y)
			responses = append(responses, lap)
		}
	}
	if len(responses) < 2 {
		return 0
	}

	variance := stat.Variance(responses, nil)
	return clamp01(variance / sharpnessNorm)
}

// Brightness scores mean luminance: 1.0 inside [0.4, 0.6], falling linearly
// to 0 at full black and full white.
func Brightness(img *image.Gray) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}

	lums := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			lums = append(lums, float64(img.GrayAt(x, y).Y)/255.0)
		}
	}
	mean := stat.Mean(lums, nil)

	var score float64
	switch {
	case mean >= brightnessLow && mean <= brightnessHigh:
		score = 1.0
	case mean < brightnessLow:
		score = mean / brightnessLow
	default:
		score = (1.0 - mean) / (1.0 - brightnessHigh)
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
