// Package detector talks to the face detection/embedding server.
//
// The model itself is a black box behind an HTTP endpoint: an image goes in,
// a list of detected faces comes back, each with a bounding box, a
// fixed-dimension embedding and a detection confidence. "No face" is an
// empty list, never an error.
package detector

import "context"

// Detection is one face found in an image.
type Detection struct {
	BBox      [4]int    // x1, y1, x2, y2 in pixel coordinates
	Embedding []float32 // fixed-dimension face embedding
	Score     float64   // detection confidence in [0,1]
}

// Detector extracts faces from raw image bytes.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Detection, error)
}
