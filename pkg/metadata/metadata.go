package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/binio"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMalformed is returned when a file's binary structure does not match
	// its format's framing rules (bad magic bytes, bad segment signature).
	ErrMalformed = errors.New("malformed media data")

	// ErrUnsupported is returned for format variants the decoders do not
	// handle, such as an infe box version other than 2.
	ErrUnsupported = errors.New("unsupported format variant")
)

// maxNestingDepth bounds recursion into nested containers so cyclic or
// adversarial structures cannot recurse without limit.
const maxNestingDepth = 16

// Format identifies which container decoder handles a file.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatBMFF
	FormatPNG
	FormatTIFF
	FormatRIFF
	FormatBMP
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatBMFF:
		return "bmff"
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tiff"
	case FormatRIFF:
		return "riff"
	case FormatBMP:
		return "bmp"
	default:
		return "unknown"
	}
}

// FormatForPath maps a file extension to its decoder.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".mp4", ".m4v", ".mov", ".heic":
		return FormatBMFF
	case ".png":
		return FormatPNG
	case ".tif", ".tiff":
		return FormatTIFF
	case ".avi", ".mpg", ".mpeg":
		return FormatRIFF
	case ".bmp":
		return FormatBMP
	default:
		return FormatUnknown
	}
}

// CreationTime extracts the embedded creation timestamp from the file at path.
//
// FormatBMP is recognized but carries no embedded time, so it always reports
// no timestamp. FormatUnknown means the file is not a supported media type.
// Decode faults are per-file; callers treat them the same as no timestamp.
func CreationTime(path string, format Format) (time.Time, bool, error) {
	switch format {
	case FormatBMP:
		return time.Time{}, false, nil
	case FormatUnknown:
		return time.Time{}, false, fmt.Errorf("%s: not a supported media type", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return time.Time{}, false, err
	}

	logrus.Debugf("decoding %s as %s", path, format)
	return Decode(binio.NewReader(f, info.Size()), format)
}

// Decode runs the decoder for format over r.
func Decode(r *binio.Reader, format Format) (time.Time, bool, error) {
	switch format {
	case FormatJPEG:
		return decodeJPEG(r)
	case FormatBMFF:
		return decodeBMFF(r)
	case FormatPNG:
		return decodePNG(r)
	case FormatTIFF:
		return decodeTIFF(r)
	case FormatRIFF:
		return decodeRIFF(r)
	default:
		return time.Time{}, false, fmt.Errorf("no decoder for format %s", format)
	}
}

// atPosition saves the cursor position, seeks to pos, runs fn, and restores
// the position on every exit path.
func atPosition(r *binio.Reader, pos int64, fn func() error) error {
	r.PushPosition(pos)
	defer r.PopPosition()
	return fn()
}
