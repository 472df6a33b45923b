package metadata

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/binio"
)

// xmpKeyword is the well-known iTXt keyword for an Adobe XMP packet.
const xmpKeyword = "XML:com.adobe.xmp"

// decodePNG walks PNG chunks for a tIME chunk or an XMP iTXt chunk. Chunk
// CRCs are read and discarded, never verified.
func decodePNG(r *binio.Reader) (time.Time, bool, error) {
	r.SetOrder(binary.BigEndian)

	sig1, err := r.ReadU32()
	if err != nil {
		return time.Time{}, false, err
	}
	sig2, err := r.ReadU32()
	if err != nil {
		return time.Time{}, false, err
	}
	if sig1 != 0x89504e47 || sig2 != 0x0d0a1a0a {
		return time.Time{}, false, fmt.Errorf("bad PNG signature: %w", ErrMalformed)
	}

	var (
		when  time.Time
		found bool
	)
	for !r.EOF() {
		length, err := r.ReadU32()
		if err != nil {
			return time.Time{}, false, err
		}
		typ, err := r.ReadString(4)
		if err != nil {
			return time.Time{}, false, err
		}

		switch typ {
		case "tIME":
			year, err := r.ReadU16()
			if err != nil {
				return time.Time{}, false, err
			}
			var f [5]uint8 // month, day, hour, minute, second
			for i := range f {
				if f[i], err = r.ReadU8(); err != nil {
					return time.Time{}, false, err
				}
			}
			when = time.Date(int(year), time.Month(f[0]), int(f[1]), int(f[2]), int(f[3]), int(f[4]), 0, time.UTC)
			found = true

		case "tEXt", "zTXt":
			r.Skip(int64(length))

		case "iTXt":
			start := r.Tell()
			keyword, err := r.ReadCString()
			if err != nil {
				return time.Time{}, false, err
			}
			r.Skip(2) // compression flag + method
			if _, err := r.ReadCString(); err != nil { // language tag
				return time.Time{}, false, err
			}
			if _, err := r.ReadCString(); err != nil { // translated keyword
				return time.Time{}, false, err
			}
			textLen := int64(length) - (r.Tell() - start)
			if textLen < 0 {
				return time.Time{}, false, fmt.Errorf("iTXt chunk shorter than its header: %w", ErrMalformed)
			}
			text, err := r.ReadString(int(textLen))
			if err != nil {
				return time.Time{}, false, err
			}
			if keyword == xmpKeyword {
				if t, ok := xmpPhotoshopDateCreated(text); ok {
					when, found = t, true
				}
			}

		case "IEND":
			return when, found, nil

		default:
			r.Skip(int64(length))
		}

		if _, err := r.ReadU32(); err != nil { // CRC, not verified
			return time.Time{}, false, err
		}
	}
	return when, found, nil
}
