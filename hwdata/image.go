package hwdata

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// LoadColumns reads a line image and turns it into a
// sequence of pixel columns, read left to right.
//
// The image is converted to grayscale and resized to the
// given height, keeping its aspect ratio.
// Intensities are inverted and scaled to [0, 1], so ink is
// near 1 and paper is near 0.
func LoadColumns(c anyvec.Creator, path string, height int) ([]anyvec.Vector, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load columns", err)
	}
	return ImageColumns(c, img, height), nil
}

// ImageColumns is like LoadColumns, but for an image that
// is already in memory.
func ImageColumns(c anyvec.Creator, img image.Image, height int) []anyvec.Vector {
	gray := imaging.Grayscale(imaging.Resize(img, 0, height, imaging.Lanczos))
	bounds := gray.Bounds()
	width := bounds.Dx()
	res := make([]anyvec.Vector, width)
	column := make([]float64, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			// Grayscale sets R, G, and B to the same value.
			offset := y*gray.Stride + x*4
			column[y] = 1 - float64(gray.Pix[offset])/0xff
		}
		res[x] = c.MakeVectorData(c.MakeNumericList(column))
	}
	return res
}
