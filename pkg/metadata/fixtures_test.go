package metadata

import (
	"bytes"
	"encoding/binary"

	"github.com/quidome/photo-organizer-go/pkg/binio"
)

// builder assembles binary test fixtures.
type builder struct {
	bytes.Buffer
}

func (b *builder) u8(vs ...uint8) { b.Write(vs) }
func (b *builder) be16(v uint16)  { _ = binary.Write(&b.Buffer, binary.BigEndian, v) }
func (b *builder) be32(v uint32)  { _ = binary.Write(&b.Buffer, binary.BigEndian, v) }
func (b *builder) be64(v uint64)  { _ = binary.Write(&b.Buffer, binary.BigEndian, v) }
func (b *builder) le16(v uint16)  { _ = binary.Write(&b.Buffer, binary.LittleEndian, v) }
func (b *builder) le32(v uint32)  { _ = binary.Write(&b.Buffer, binary.LittleEndian, v) }
func (b *builder) str(s string)   { b.WriteString(s) }
func (b *builder) pad(n int)      { b.Write(make([]byte, n)) }
func (b *builder) raw(p []byte)   { b.Write(p) }

func testReader(data []byte) *binio.Reader {
	return binio.NewReader(bytes.NewReader(data), int64(len(data)))
}

// tiffBlob builds a minimal little-endian TIFF/EXIF blob whose first IFD
// holds one DateTimeOriginal entry.
func tiffBlob(date string) []byte {
	var b builder
	b.str("II")
	b.le16(42)
	b.le32(8) // first IFD offset

	// IFD: one entry, value stored out of line at offset 26
	b.le16(1)
	b.le16(tagDateTimeOriginal)
	b.le16(2)  // ASCII
	b.le32(20) // count, including NUL
	b.le32(26)
	b.le32(0) // no next IFD

	b.str(date)
	b.u8(0)
	return b.Bytes()
}
