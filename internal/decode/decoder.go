// Package decode turns encoded photographs into photo.Photo values: pixels
// through the standard image decoders plus golang.org/x/image, and the
// camera fields the classifier needs from EXIF.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"go-photo-sharpness/internal/photo"

	"github.com/bep/imagemeta"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat indicates bytes no registered decoder understands
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrCorrupt indicates a recognised format whose data failed to decode
	ErrCorrupt = errors.New("corrupt image data")
)

// exifTags lists the EXIF fields read into the maker note
var exifTags = map[string]bool{
	"Model":           true,
	"FocalLength":     true,
	"SubjectDistance": true,
}

// Overrides replace decoded maker-note fields. Nil fields keep the decoded
// value.
type Overrides struct {
	CameraModel   *string
	AFPointIndex  *int
	FocalLength   *float64
	FocalDistance *float64
}

// Decode decodes a photograph and its EXIF fields. Missing or unreadable
// metadata leaves the fields zero; the AF point index is never present in
// EXIF and comes from overrides only.
func Decode(name string, data []byte, o Overrides) (*photo.Photo, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
		}
		return nil, fmt.Errorf("%w: %s image %s: %w", ErrCorrupt, format, name, err)
	}

	note := ReadMakerNote(data)
	o.apply(&note)

	return photo.New(name, img, note), nil
}

// ReadMakerNote extracts camera model, focal length and subject distance
// from EXIF. Errors are swallowed: a photo without EXIF is still classified.
func ReadMakerNote(data []byte) photo.MakerNote {
	var note photo.MakerNote
	if len(data) == 0 {
		return note
	}

	_, _ = imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Source == imagemeta.EXIF && exifTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "Model":
				note.CameraModel = strings.TrimSpace(tagValueString(ti.Value))
			case "FocalLength":
				if f, ok := tagValueFloat(ti.Value); ok {
					note.FocalLength = f
				}
			case "SubjectDistance":
				if f, ok := tagValueFloat(ti.Value); ok {
					note.FocalDistance = f
				}
			}
			return nil
		},
	})

	return note
}

func (o Overrides) apply(note *photo.MakerNote) {
	if o.CameraModel != nil {
		note.CameraModel = *o.CameraModel
	}
	if o.AFPointIndex != nil {
		note.AFPointIndex = *o.AFPointIndex
	}
	if o.FocalLength != nil {
		note.FocalLength = *o.FocalLength
	}
	if o.FocalDistance != nil {
		note.FocalDistance = *o.FocalDistance
	}
}

func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []byte:
		return strings.TrimRight(string(val), "\x00")
	default:
		return ""
	}
}

// tagValueFloat converts the numeric forms EXIF rationals are reported in.
func tagValueFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint16:
		return float64(val), true
	case interface{ Float64() float64 }:
		return val.Float64(), true
	case string:
		// Rationals may be reported as "num/den"
		if num, den, ok := strings.Cut(val, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 != nil || err2 != nil || d == 0 {
				return 0, false
			}
			return n / d, true
		}
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
