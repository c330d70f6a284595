// Package photo holds the decoded form of a photograph as handed over by an
// image decoder: an RGB image, its luminance samples and maker-note fields.
package photo

import (
	"image"
	"image/draw"

	"gonum.org/v1/gonum/mat"
)

// MakerNoteTag is the maker-note field carrying the primary AF point reading.
const MakerNoteTag = "MakerNote AFInfo2"

// MaxSample is the largest value a luminance sample can take.
const MaxSample = 255.0

// MakerNote holds the camera-reported fields used as features.
type MakerNote struct {
	CameraModel   string  `json:"camera_model,omitempty"`
	AFPointIndex  int     `json:"af_point_index"`
	FocalLength   float64 `json:"focal_length"`
	FocalDistance float64 `json:"focal_distance"`
}

// Photo is a decoded photograph. Luma rows are image rows and columns are
// image columns, with the image's top-left pixel at (0, 0).
type Photo struct {
	Name      string
	RGB       image.Image
	Luma      *mat.Dense
	MakerNote MakerNote
}

// New builds a Photo from a decoded image, converting it to 8-bit luminance.
func New(name string, img image.Image, note MakerNote) *Photo {
	return &Photo{
		Name:      name,
		RGB:       img,
		Luma:      LumaFromImage(img),
		MakerNote: note,
	}
}

// NewFromLuma builds a Photo from precomputed luminance samples. The RGB
// layer is a grayscale rendering of the samples.
func NewFromLuma(name string, luma *mat.Dense, note MakerNote) *Photo {
	r, c := luma.Dims()
	gray := image.NewGray(image.Rect(0, 0, c, r))
	for y := 0; y < r; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+c]
		for x := range row {
			v := luma.At(y, x)
			switch {
			case v < 0:
				v = 0
			case v > MaxSample:
				v = MaxSample
			}
			row[x] = uint8(v + 0.5)
		}
	}
	return &Photo{Name: name, RGB: gray, Luma: luma, MakerNote: note}
}

// Bounds returns the layer bounds shared by every layer of the photo
func (p *Photo) Bounds() image.Rectangle {
	r, c := p.Luma.Dims()
	return image.Rect(0, 0, c, r)
}

// LumaFromImage converts an image to luminance samples using the ITU-R 601
// weights of image/color's gray model.
func LumaFromImage(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok || gray.Rect.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	}

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		dst := data[y*w : (y+1)*w]
		for x, v := range src {
			dst[x] = float64(v)
		}
	}
	return mat.NewDense(h, w, data)
}
