package photo

import (
	"fmt"
	"image"

	"go-photo-sharpness/internal/afpoint"

	"gonum.org/v1/gonum/mat"
)

// Layer names a per-pixel layer of a photograph.
type Layer string

const (
	LayerRGB      Layer = "rgb"
	LayerLuma     Layer = "l"
	LayerGradient Layer = "grad"
)

// Tile is a window view onto one layer. Data is set for the luminance and
// gradient layers, Image for the RGB layer.
type Tile struct {
	Layer Layer
	Rect  image.Rectangle
	Data  mat.Matrix
	Image image.Image
}

// subImager is implemented by the standard library image types.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// slicer is implemented by gonum matrix types that support views.
type slicer interface {
	Slice(i, k, j, l int) mat.Matrix
}

// Tile returns the TileSize window centred on center. The returned view
// shares storage with the photo; a window outside the layer fails with
// afpoint.ErrTileOutOfBounds. The gradient layer depends on the gradient
// mode and is not held by the photo; use MatrixTile on a computed layer.
func (p *Photo) Tile(layer Layer, center image.Point) (Tile, error) {
	r := afpoint.TileRect(center)

	switch layer {
	case LayerLuma:
		return MatrixTile(layer, p.Luma, center)

	case LayerGradient:
		return Tile{}, fmt.Errorf("photo %s: gradient layer must be computed by the caller", p.Name)

	case LayerRGB:
		// RGB bounds may not start at the origin; tile coordinates do.
		b := p.RGB.Bounds()
		if err := afpoint.CheckBounds(r, image.Rect(0, 0, b.Dx(), b.Dy())); err != nil {
			return Tile{}, err
		}
		si, ok := p.RGB.(subImager)
		if !ok {
			return Tile{}, fmt.Errorf("photo %s: rgb layer %T does not support sub images", p.Name, p.RGB)
		}
		return Tile{Layer: layer, Rect: r, Image: si.SubImage(r.Add(b.Min))}, nil

	default:
		return Tile{}, fmt.Errorf("unknown layer %q", layer)
	}
}

// MatrixTile returns the TileSize window centred on center as a view of
// src, which is a per-pixel layer with rows as image rows.
func MatrixTile(layer Layer, src mat.Matrix, center image.Point) (Tile, error) {
	r := afpoint.TileRect(center)
	rows, cols := src.Dims()
	if err := afpoint.CheckBounds(r, image.Rect(0, 0, cols, rows)); err != nil {
		return Tile{}, err
	}
	s, ok := src.(slicer)
	if !ok {
		return Tile{}, fmt.Errorf("%s layer %T does not support views", layer, src)
	}
	return Tile{Layer: layer, Rect: r, Data: s.Slice(r.Min.Y, r.Max.Y, r.Min.X, r.Max.X)}, nil
}
