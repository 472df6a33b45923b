package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quidome/photo-organizer-go/pkg/binio"
)

const (
	markerSOI   = 0xffd8
	markerAPP1  = 0xffe1
	markerAPP3  = 0xffe3
	markerAPP13 = 0xffed
	markerSOS   = 0xffda
	markerEOI   = 0xffd9
)

// IPTC dataset pairs that hold an 8-digit YYYYMMDD date: 1:70 Date Sent,
// 2:30 Release Date, 2:55 Date Created, 2:62 Digital Creation Date.
func iptcDateDataset(record, dataset uint8) bool {
	switch {
	case record == 1 && dataset == 70:
		return true
	case record == 2 && (dataset == 30 || dataset == 55 || dataset == 62):
		return true
	}
	return false
}

type jpegDecoder struct {
	r     *binio.Reader
	when  time.Time
	found bool
}

// decodeJPEG scans JPEG markers for timestamp-bearing application segments:
// EXIF in APP1/APP3, Adobe XMP in APP1, and Photoshop IRB/IPTC in APP13.
// Start-of-scan is terminal; nothing timestamp-bearing follows it.
func decodeJPEG(r *binio.Reader) (time.Time, bool, error) {
	r.SetOrder(binary.BigEndian)
	d := &jpegDecoder{r: r}
	if err := d.parse(); err != nil {
		return time.Time{}, false, err
	}
	return d.when, d.found, nil
}

func (d *jpegDecoder) parse() error {
	for !d.r.EOF() {
		marker, err := d.r.ReadU16()
		if err != nil {
			return err
		}
		switch marker {
		case markerSOI:
			// no payload
		case markerAPP1, markerAPP3:
			if err := d.parseApp(); err != nil {
				return err
			}
		case markerAPP13:
			if err := d.parseIRB(); err != nil {
				return err
			}
		case markerSOS, markerEOI:
			return nil
		default:
			length, err := d.r.ReadU16()
			if err != nil {
				return err
			}
			d.r.Skip(int64(length) - 2)
		}
	}
	return nil
}

// parseApp handles an APP1/APP3 segment: an EXIF blob handed to the TIFF
// decoder, or an XMP packet. Any other signature is a decode fault.
func (d *jpegDecoder) parseApp() error {
	totalLength, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	length := int64(totalLength) - 2 // length field includes itself
	start := d.r.Tell()

	sig, err := d.r.ReadString(4)
	if err != nil {
		return err
	}
	switch sig {
	case "Exif", "Meta":
		d.r.Skip(2) // header padding
		d.r.PushOrder()
		when, found, decErr := decodeTIFF(d.r)
		d.r.PopOrder()
		d.r.Seek(start + length)
		if decErr != nil {
			return decErr
		}
		// The APP1/APP3 scan itself is first-wins.
		if found && !d.found {
			d.when, d.found = when, true
		}

	case "http", "XMP\x00":
		url, err := d.r.ReadCString()
		if err != nil {
			return err
		}
		textLen := length - int64(utf8.RuneCountInString(url)) - 5
		if textLen < 0 {
			return fmt.Errorf("XMP segment shorter than its header: %w", ErrMalformed)
		}
		text, err := d.r.ReadString(int(textLen))
		if err != nil {
			return err
		}
		text = strings.TrimRight(text, " \r\n\x00")
		when, found, xmpErr := xmpDateTimeOriginal(text)
		if xmpErr != nil {
			return xmpErr
		}
		if found {
			d.when, d.found = when, true
		}

	default:
		return fmt.Errorf("bad APP segment signature %q: %w", sig, ErrMalformed)
	}
	return nil
}

// parseIRB walks Photoshop Image Resource Blocks in an APP13 segment and
// extracts dates from IPTC-NAA records (resource type 0x0404).
func (d *jpegDecoder) parseIRB() error {
	totalLength, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	end := d.r.Tell() + int64(totalLength) - 2

	if _, err := d.r.ReadCString(); err != nil { // Photoshop version string
		return err
	}

	for d.r.Tell() < end {
		sig, err := d.r.ReadString(4)
		if err != nil {
			return err
		}
		if sig != "8BIM" {
			return fmt.Errorf("bad image resource block signature %q: %w", sig, ErrMalformed)
		}
		resType, err := d.r.ReadU16()
		if err != nil {
			return err
		}
		nameLen, err := d.r.ReadU8()
		if err != nil {
			return err
		}
		if _, err := d.r.ReadString(int(nameLen)); err != nil {
			return err
		}
		if nameLen&1 == 0 { // name is padded to even length including its size byte
			d.r.Skip(1)
		}
		dataLen, err := d.r.ReadU32()
		if err != nil {
			return err
		}

		if resType == 0x0404 {
			if err := d.parseIPTC(int64(dataLen)); err != nil {
				return err
			}
		} else {
			d.r.Skip(int64(dataLen))
		}
		if dataLen&1 == 1 { // resources are padded to the next 16-bit boundary
			d.r.Skip(1)
		}
	}
	return nil
}

func (d *jpegDecoder) parseIPTC(dataLen int64) error {
	// The declared resource length can be padding-inflated relative to the
	// actual record content, so the end position is forced afterwards.
	end := d.r.Tell() + dataLen
	defer d.r.Seek(end)

	for d.r.Tell() < end-3 {
		if _, err := d.r.ReadU8(); err != nil { // tag marker
			return err
		}
		record, err := d.r.ReadU8()
		if err != nil {
			return err
		}
		dataset, err := d.r.ReadU8()
		if err != nil {
			return err
		}
		fieldLen, err := d.r.ReadU16()
		if err != nil {
			return err
		}

		if !iptcDateDataset(record, dataset) {
			d.r.Skip(int64(fieldLen))
			continue
		}
		s, err := d.r.ReadString(int(fieldLen))
		if err != nil {
			return err
		}
		t, perr := time.Parse("20060102", s)
		if perr != nil {
			return fmt.Errorf("bad IPTC date %q: %w", s, ErrMalformed)
		}
		d.when, d.found = t, true
	}
	return nil
}
