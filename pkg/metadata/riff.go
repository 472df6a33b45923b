package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/binio"
)

type riffDecoder struct {
	r     *binio.Reader
	when  time.Time
	found bool
}

// decodeRIFF walks a RIFF/AVI file looking for an IDIT chunk, which holds a
// textual capture timestamp such as "Mon Jan 02 15:04:05 2006".
func decodeRIFF(r *binio.Reader) (time.Time, bool, error) {
	r.SetOrder(binary.LittleEndian)

	sig, err := r.ReadString(4)
	if err != nil {
		return time.Time{}, false, err
	}
	if sig != "RIFF" {
		return time.Time{}, false, fmt.Errorf("bad RIFF signature %q: %w", sig, ErrMalformed)
	}
	size, err := r.ReadU32()
	if err != nil {
		return time.Time{}, false, err
	}
	if _, err := r.ReadString(4); err != nil { // form type, e.g. "AVI "
		return time.Time{}, false, err
	}

	d := &riffDecoder{r: r}
	if err := d.parseChunks(int64(size), 0); err != nil {
		return time.Time{}, false, err
	}
	return d.when, d.found, nil
}

func (d *riffDecoder) parseChunks(end int64, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("RIFF list nesting too deep: %w", ErrMalformed)
	}
	for d.r.Tell() < end {
		id, err := d.r.ReadString(4)
		if err != nil {
			return err
		}
		size, err := d.r.ReadU32()
		if err != nil {
			return err
		}

		switch id {
		case "LIST":
			if size < 4 {
				return fmt.Errorf("RIFF LIST chunk too small: %w", ErrMalformed)
			}
			if _, err := d.r.ReadString(4); err != nil { // list type
				return err
			}
			// The declared size includes the list type just read.
			listEnd := d.r.Tell() + int64(size) - 4
			if listEnd > end {
				listEnd = end
			}
			if err := d.parseChunks(listEnd, depth+1); err != nil {
				return err
			}
			d.r.Seek(listEnd)

		case "IDIT":
			s, err := d.r.ReadString(int(size))
			if err != nil {
				return err
			}
			s = strings.TrimRight(s, "\x00 \r\n")
			t, err := time.Parse("Mon Jan 02 15:04:05 2006", s)
			if err != nil {
				return fmt.Errorf("bad IDIT timestamp %q: %w", s, ErrMalformed)
			}
			d.when, d.found = t, true

		default:
			d.r.Skip(int64(size))
		}
	}
	return nil
}
