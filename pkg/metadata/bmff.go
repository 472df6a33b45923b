package metadata

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/binio"
)

// macToUnixEpoch is the difference in seconds between the Mac epoch
// (1904-01-01) used by mvhd creation times and the Unix epoch.
const macToUnixEpoch = 2082844800

// extent is one (offset, length) byte range from a HEIC item location box.
type extent struct {
	offset uint64
	length uint64
}

type bmffDecoder struct {
	r *binio.Reader

	// exifItem is the item id an infe box marked as holding Exif data;
	// extents maps item ids to their last declared extent from iloc.
	exifItem     uint32
	haveExifItem bool
	extents      map[uint32]extent

	when  time.Time
	found bool
}

// decodeBMFF walks ISO-BMFF atoms (MP4, QuickTime, HEIC) for an mvhd
// creation time, an iTunes ©day value, or a HEIC-embedded EXIF item.
func decodeBMFF(r *binio.Reader) (time.Time, bool, error) {
	r.SetOrder(binary.BigEndian)
	d := &bmffDecoder{r: r, extents: make(map[uint32]extent)}
	if err := d.parseAtoms(r.Len(), 0); err != nil {
		return time.Time{}, false, err
	}
	return d.when, d.found, nil
}

func (d *bmffDecoder) parseAtoms(end int64, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("atom nesting too deep: %w", ErrMalformed)
	}
	for d.r.Tell() < end {
		size32, err := d.r.ReadU32()
		if err != nil {
			return err
		}
		if size32 == 0 {
			// "Extends to end of file"; the loop bound covers the rest, so
			// keep scanning. This also steps over fullbox version/flags
			// words inside meta without desynchronizing the walk.
			continue
		}

		typ, err := d.r.ReadString(4)
		if err != nil {
			return err
		}
		size := int64(size32)
		headerLen := int64(8)
		if size32 == 1 {
			big, err := d.r.ReadU64()
			if err != nil {
				return err
			}
			size = int64(big)
			headerLen = 16
		}
		if typ == "uuid" {
			d.r.Skip(16) // extended type
			headerLen += 16
		}
		if size < headerLen {
			return fmt.Errorf("atom %q smaller than its header: %w", typ, ErrMalformed)
		}
		atomEnd := d.r.Tell() + size - headerLen
		if atomEnd > end { // a child never runs past its parent
			atomEnd = end
		}

		switch typ {
		case "moov", "udta", "meta":
			if err := d.parseAtoms(atomEnd, depth+1); err != nil {
				return err
			}
		case "mvhd":
			if err := d.parseMvhd(); err != nil {
				return err
			}
		case "©day":
			if err := d.parseDay(); err != nil {
				return err
			}
		case "iinf":
			if err := d.parseIinf(atomEnd, depth); err != nil {
				return err
			}
		case "infe":
			if err := d.parseInfe(); err != nil {
				return err
			}
		case "iloc":
			if err := d.parseIloc(); err != nil {
				return err
			}
		}
		d.r.Seek(atomEnd)
	}
	return nil
}

// parseMvhd reads the movie header creation time, counted in seconds since
// the Mac epoch. Zero means absent, not 1904.
func (d *bmffDecoder) parseMvhd() error {
	if _, err := d.r.ReadU8(); err != nil { // version
		return err
	}
	if _, err := d.r.ReadU24(); err != nil { // flags
		return err
	}
	creation, err := d.r.ReadU32()
	if err != nil {
		return err
	}
	if creation != 0 {
		d.when = time.Unix(int64(creation)-macToUnixEpoch, 0).UTC()
		d.found = true
	}
	return nil
}

// parseDay reads an iTunes-style ©day atom. Parse failures are swallowed.
func (d *bmffDecoder) parseDay() error {
	dataSize, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	if _, err := d.r.ReadU16(); err != nil { // language code
		return err
	}
	s, err := d.r.ReadString(int(dataSize))
	if err != nil {
		return err
	}
	if len(s) > 19 {
		s = s[:19]
	}
	if t, perr := time.Parse("2006-01-02T15:04:05", s); perr == nil {
		d.when, d.found = t, true
	}
	return nil
}

// parseIinf reads an item information box header, then recurses into its
// nested infe boxes.
func (d *bmffDecoder) parseIinf(atomEnd int64, depth int) error {
	version, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	if _, err := d.r.ReadU24(); err != nil { // flags
		return err
	}
	if version == 0 {
		if _, err := d.r.ReadU16(); err != nil { // item count
			return err
		}
	} else {
		if _, err := d.r.ReadU32(); err != nil {
			return err
		}
	}
	return d.parseAtoms(atomEnd, depth+1)
}

// parseInfe records which item id holds Exif data.
func (d *bmffDecoder) parseInfe() error {
	version, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("infe box version %d: %w", version, ErrUnsupported)
	}
	if _, err := d.r.ReadU24(); err != nil { // flags
		return err
	}
	itemID, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	if _, err := d.r.ReadU16(); err != nil { // item protection index
		return err
	}
	itemType, err := d.r.ReadString(4)
	if err != nil {
		return err
	}
	if _, err := d.r.ReadCString(); err != nil { // item name
		return err
	}
	if itemType == "Exif" {
		d.exifItem = uint32(itemID)
		d.haveExifItem = true
	}
	// Remaining declared bytes are skipped by the caller's atom-end seek.
	return nil
}

// parseIloc reads the item location box, populating the item extent table,
// then decodes the Exif item if one was recorded.
func (d *bmffDecoder) parseIloc() error {
	version, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	if _, err := d.r.ReadU24(); err != nil { // flags
		return err
	}
	packed, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	offsetSize := packed >> 4
	lengthSize := packed & 0x0f
	packed, err = d.r.ReadU8()
	if err != nil {
		return err
	}
	baseOffsetSize := packed >> 4
	indexSize := packed & 0x0f

	var itemCount uint32
	if version < 2 {
		n, err := d.r.ReadU16()
		if err != nil {
			return err
		}
		itemCount = uint32(n)
	} else {
		if itemCount, err = d.r.ReadU32(); err != nil {
			return err
		}
	}

	for i := uint32(0); i < itemCount; i++ {
		var itemID uint32
		if version < 2 {
			n, err := d.r.ReadU16()
			if err != nil {
				return err
			}
			itemID = uint32(n)
		} else {
			if itemID, err = d.r.ReadU32(); err != nil {
				return err
			}
		}
		if version == 1 || version == 2 {
			if _, err := d.r.ReadU16(); err != nil { // construction method nibble
				return err
			}
		}
		if _, err := d.r.ReadU16(); err != nil { // data reference index
			return err
		}
		if baseOffsetSize > 0 {
			if _, err := d.readSized(baseOffsetSize); err != nil {
				return err
			}
		}

		extentCount, err := d.r.ReadU16()
		if err != nil {
			return err
		}
		var ext extent
		for j := uint16(0); j < extentCount; j++ {
			if (version == 1 || version == 2) && indexSize > 0 {
				if _, err := d.readSized(indexSize); err != nil {
					return err
				}
			}
			if ext.offset, err = d.readSized(offsetSize); err != nil {
				return err
			}
			if ext.length, err = d.readSized(lengthSize); err != nil {
				return err
			}
		}
		if extentCount > 0 {
			d.extents[itemID] = ext
		}
	}

	if !d.haveExifItem {
		return nil
	}
	ext, ok := d.extents[d.exifItem]
	if !ok {
		return nil
	}
	return d.decodeExifItem(ext)
}

// readSized reads a field whose width the iloc header packed into a nibble:
// 4 bytes, or 8 for any other nonzero value.
func (d *bmffDecoder) readSized(size uint8) (uint64, error) {
	if size == 4 {
		v, err := d.r.ReadU32()
		return uint64(v), err
	}
	return d.r.ReadU64()
}

// decodeExifItem seeks to an Exif item's extent, verifies the "Exif" marker,
// and hands the embedded blob to the TIFF decoder.
func (d *bmffDecoder) decodeExifItem(ext extent) error {
	d.r.PushPosition(int64(ext.offset))
	defer d.r.PopPosition()
	d.r.PushOrder()
	defer d.r.PopOrder()

	markerLen, err := d.r.ReadU32()
	if err != nil {
		return err
	}
	marker, err := d.r.ReadString(4)
	if err != nil {
		return err
	}
	if marker != "Exif" {
		return fmt.Errorf("bad Exif item marker %q: %w", marker, ErrMalformed)
	}
	d.r.Skip(int64(markerLen) - 4) // remainder of the marker header

	when, found, err := decodeTIFF(d.r)
	if err != nil {
		return err
	}
	if found {
		d.when, d.found = when, true
	}
	return nil
}
