// Package imaging converts transport image bytes into the pixel data the
// quality and liveness stages operate on.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// maxCropSize bounds the face crop used for quality scoring. Larger crops
// are downscaled before scoring so the cost stays constant regardless of
// camera resolution.
const maxCropSize = 512

// Decode decodes JPEG, PNG or BMP image bytes.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// CropBBox extracts the [x1,y1,x2,y2] region of img, clamping the box to the
// image bounds. Returns an error for degenerate boxes.
func CropBBox(img image.Image, bbox [4]int) (image.Image, error) {
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		return nil, fmt.Errorf("degenerate bounding box %v", bbox)
	}

	b := img.Bounds()
	rect := image.Rect(bbox[0], bbox[1], bbox[2], bbox[3]).Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("bounding box %v outside image bounds %v", bbox, b)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(rect), nil
	}

	// Fallback for image types without SubImage.
	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)
	return crop, nil
}

// Grayscale converts img to 8-bit grayscale, downscaling crops larger than
// maxCropSize on either side while keeping aspect ratio.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if width > maxCropSize || height > maxCropSize {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxCropSize
			newHeight = height * maxCropSize / width
		} else {
			newHeight = maxCropSize
			newWidth = width * maxCropSize / height
		}
		if newWidth < 1 {
			newWidth = 1
		}
		if newHeight < 1 {
			newHeight = 1
		}
		gray := image.NewGray(image.Rect(0, 0, newWidth, newHeight))
		xdraw.CatmullRom.Scale(gray, gray.Bounds(), img, b, xdraw.Src, nil)
		return gray
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
