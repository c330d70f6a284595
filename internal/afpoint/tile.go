package afpoint

import (
	"errors"
	"fmt"
	"image"
)

const (
	// TileSize is the edge length of an AF point tile in samples
	TileSize = 255

	// tileHalf is the offset from the centre to the top-left sample
	tileHalf = 128
)

// ErrTileOutOfBounds indicates a tile window that does not fit in its layer
var ErrTileOutOfBounds = errors.New("af point tile outside layer bounds")

// TileRect returns the window centred on an AF point. Min is the top-left
// sample and Max is exclusive, so the window spans TileSize samples per axis.
func TileRect(center image.Point) image.Rectangle {
	topLeft := center.Sub(image.Pt(tileHalf, tileHalf))
	return image.Rectangle{Min: topLeft, Max: topLeft.Add(image.Pt(TileSize, TileSize))}
}

// CheckBounds reports ErrTileOutOfBounds when r is not fully inside bounds.
func CheckBounds(r, bounds image.Rectangle) error {
	if !r.In(bounds) {
		return fmt.Errorf("%w: tile %v, layer %v", ErrTileOutOfBounds, r, bounds)
	}
	return nil
}
