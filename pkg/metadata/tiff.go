package metadata

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/binio"
)

// EXIF/TIFF tags that carry a creation timestamp, plus the sub-IFD pointer.
const (
	tagModifyDate       = 0x0132
	tagDateTimeOriginal = 0x9003
	tagCreateDate       = 0x9004
	tagExifOffset       = 0x8769
)

// maxIFDs bounds the total number of directories visited across the next-IFD
// chain and ExifOffset recursion, so a cyclic chain cannot loop forever.
const maxIFDs = 64

type tiffDecoder struct {
	r *binio.Reader

	// base is the stream offset at entry; all offsets inside a TIFF/EXIF
	// blob are relative to it, not to the start of the physical file.
	base    int64
	visited int

	when  time.Time
	found bool
}

// decodeTIFF parses a TIFF/EXIF blob starting at the cursor's current
// position. It is invoked directly for .tif files and nested from the JPEG
// and ISO-BMFF decoders for embedded EXIF data.
func decodeTIFF(r *binio.Reader) (time.Time, bool, error) {
	d := &tiffDecoder{r: r, base: r.Tell()}
	if err := d.parse(); err != nil {
		return time.Time{}, false, err
	}
	return d.when, d.found, nil
}

func (d *tiffDecoder) parse() error {
	// "II" and "MM" read the same under either byte order.
	bom, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	switch bom {
	case 0x4949:
		d.r.SetOrder(binary.LittleEndian)
	case 0x4d4d:
		d.r.SetOrder(binary.BigEndian)
	default:
		return fmt.Errorf("bad TIFF byte order mark 0x%04x: %w", bom, ErrMalformed)
	}

	magic, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	if magic != 42 {
		return fmt.Errorf("bad TIFF magic %d: %w", magic, ErrMalformed)
	}

	next, err := d.r.ReadU32()
	if err != nil {
		return err
	}
	for next != 0 {
		d.r.Seek(d.base + int64(next))
		next, err = d.parseIFD(0)
		if err != nil {
			return err
		}
	}
	return nil
}

// parseIFD reads one directory at the cursor and returns the next-IFD offset.
func (d *tiffDecoder) parseIFD(depth int) (uint32, error) {
	if depth > maxNestingDepth {
		return 0, fmt.Errorf("IFD nesting too deep: %w", ErrMalformed)
	}
	d.visited++
	if d.visited > maxIFDs {
		return 0, fmt.Errorf("too many IFDs: %w", ErrMalformed)
	}

	entries, err := d.r.ReadU16()
	if err != nil {
		return 0, err
	}

	for i := 0; i < int(entries); i++ {
		tag, err := d.r.ReadU16()
		if err != nil {
			return 0, err
		}
		if _, err := d.r.ReadU16(); err != nil { // field type
			return 0, err
		}
		count, err := d.r.ReadU32()
		if err != nil {
			return 0, err
		}
		offset, err := d.r.ReadU32()
		if err != nil {
			return 0, err
		}
		value := d.base + int64(offset)

		switch tag {
		case tagExifOffset:
			err := atPosition(d.r, value, func() error {
				_, err := d.parseIFD(depth + 1)
				return err
			})
			if err != nil {
				return 0, err
			}

		case tagModifyDate, tagDateTimeOriginal, tagCreateDate:
			if count < 1 {
				continue
			}
			var s string
			err := atPosition(d.r, value, func() error {
				var err error
				// count includes the trailing NUL.
				s, err = d.r.ReadString(int(count) - 1)
				return err
			})
			if err != nil {
				return 0, err
			}
			d.recordDate(s)
		}
	}

	return d.r.ReadU32()
}

// recordDate parses a YYYY:MM:DD HH:MM:SS value. A leading "0000" year means
// the field is absent. An invalid day for its month (Feb 29 in a non-leap
// year, day 31 in a 30-day month) falls back to a month-level repair: parse
// the YYYY:MM prefix and add day-1 calendar days to the first of that month.
// The repair does not reconstruct the time of day. Last parsed value wins.
func (d *tiffDecoder) recordDate(s string) {
	if strings.HasPrefix(s, "0000") {
		return
	}
	if t, err := time.Parse("2006:01:02 15:04:05", s); err == nil {
		d.when, d.found = t, true
		return
	}
	if len(s) < 10 {
		return
	}
	month, err := time.Parse("2006:01", s[:7])
	if err != nil {
		return
	}
	day, err := strconv.Atoi(s[8:10])
	if err != nil {
		return
	}
	d.when, d.found = month.AddDate(0, 0, day-1), true
}
