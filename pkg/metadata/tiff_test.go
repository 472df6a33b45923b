package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTIFFDateTimeOriginal(t *testing.T) {
	when, found, err := decodeTIFF(testReader(tiffBlob("2021:01:02 03:04:05")))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC), when)
}

func TestTIFFBigEndian(t *testing.T) {
	var b builder
	b.str("MM")
	b.be16(42)
	b.be32(8)
	b.be16(1)
	b.be16(tagCreateDate)
	b.be16(2)
	b.be32(20)
	b.be32(26)
	b.be32(0)
	b.str("1999:12:31 23:59:58")
	b.u8(0)

	when, found, err := decodeTIFF(testReader(b.Bytes()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(1999, 12, 31, 23, 59, 58, 0, time.UTC), when)
}

func TestTIFFInvalidDayRepaired(t *testing.T) {
	// Feb 29 in a non-leap year: repaired as 2021-02-01 plus 28 days.
	// The repair is month/day-only; the time of day is not reconstructed.
	when, found, err := decodeTIFF(testReader(tiffBlob("2021:02:29 10:00:00")))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), when)
}

func TestTIFFZeroYearSkipped(t *testing.T) {
	_, found, err := decodeTIFF(testReader(tiffBlob("0000:00:00 00:00:00")))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTIFFBadByteOrder(t *testing.T) {
	var b builder
	b.str("XX")
	b.le16(42)
	b.le32(8)

	_, _, err := decodeTIFF(testReader(b.Bytes()))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestTIFFBadMagic(t *testing.T) {
	var b builder
	b.str("II")
	b.le16(43)
	b.le32(8)

	_, _, err := decodeTIFF(testReader(b.Bytes()))
	assert.True(t, errors.Is(err, ErrMalformed))
}

// TestTIFFExifSubIFDLastWins exercises the ExifOffset recursion and the
// last-parsed-wins rule: IFD0 carries ModifyDate, the sub-IFD it points to
// carries DateTimeOriginal, and the sub-IFD value is parsed later.
func TestTIFFExifSubIFDLastWins(t *testing.T) {
	var b builder
	b.str("II")
	b.le16(42)
	b.le32(8)

	// IFD0 at 8: two entries, ends at 8+2+24+4 = 38
	b.le16(2)
	b.le16(tagModifyDate)
	b.le16(2)
	b.le32(20)
	b.le32(38) // ModifyDate string at 38
	b.le16(tagExifOffset)
	b.le16(4)
	b.le32(1)
	b.le32(58) // sub-IFD at 58
	b.le32(0)

	b.str("2001:01:01 01:01:01")
	b.u8(0)

	// Exif sub-IFD at 58: one entry, ends at 58+2+12+4 = 76
	b.le16(1)
	b.le16(tagDateTimeOriginal)
	b.le16(2)
	b.le32(20)
	b.le32(76)
	b.le32(0)

	b.str("2002:02:02 02:02:02")
	b.u8(0)

	when, found, err := decodeTIFF(testReader(b.Bytes()))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2002, 2, 2, 2, 2, 2, 0, time.UTC), when)
}

// TestTIFFCyclicIFDChainBounded feeds an IFD whose next-IFD offset points
// back at itself; the decoder must fault instead of looping.
func TestTIFFCyclicIFDChainBounded(t *testing.T) {
	var b builder
	b.str("II")
	b.le16(42)
	b.le32(8)
	b.le16(0) // empty IFD
	b.le32(8) // next IFD: itself

	_, _, err := decodeTIFF(testReader(b.Bytes()))
	assert.True(t, errors.Is(err, ErrMalformed))
}
