package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFixture(chunks func(b *builder)) []byte {
	var b builder
	b.be32(0x89504e47)
	b.be32(0x0d0a1a0a)
	chunks(&b)
	b.be32(0)
	b.str("IEND")
	b.be32(0) // CRC
	return b.Bytes()
}

func pngTIME(b *builder, year uint16, month, day, hour, minute, second uint8) {
	b.be32(7)
	b.str("tIME")
	b.be16(year)
	b.u8(month)
	b.u8(day)
	b.u8(hour)
	b.u8(minute)
	b.u8(second)
	b.be32(0) // CRC, never verified
}

func TestPNGTIME(t *testing.T) {
	data := pngFixture(func(b *builder) {
		pngTIME(b, 2020, 6, 15, 10, 30, 0)
	})

	when, found, err := decodePNG(testReader(data))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2020, 6, 15, 10, 30, 0, 0, time.UTC), when)
}

func TestPNGITXtXMP(t *testing.T) {
	xmp := `<x:xmpmeta xmlns:x="adobe:ns:meta/">` +
		`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		`<rdf:Description xmlns:photoshop="http://ns.adobe.com/photoshop/1.0/">` +
		`<photoshop:DateCreated>2018-07-06T05:04:03</photoshop:DateCreated>` +
		`</rdf:Description></rdf:RDF></x:xmpmeta>`

	data := pngFixture(func(b *builder) {
		header := len(xmpKeyword) + 1 + 2 + 1 + 1 // keyword, flags, empty language + translated keyword
		b.be32(uint32(header + len(xmp)))
		b.str("iTXt")
		b.str(xmpKeyword)
		b.u8(0)
		b.u8(0) // not compressed
		b.u8(0) // compression method
		b.u8(0) // empty language tag
		b.u8(0) // empty translated keyword
		b.str(xmp)
		b.be32(0)
	})

	when, found, err := decodePNG(testReader(data))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2018, 7, 6, 5, 4, 3, 0, time.UTC), when)
}

func TestPNGLaterTIMEOverwrites(t *testing.T) {
	data := pngFixture(func(b *builder) {
		pngTIME(b, 2001, 1, 1, 0, 0, 0)
		pngTIME(b, 2009, 9, 9, 9, 9, 9)
	})

	when, found, err := decodePNG(testReader(data))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2009, 9, 9, 9, 9, 9, 0, time.UTC), when)
}

func TestPNGSkipsTextAndUnknownChunks(t *testing.T) {
	data := pngFixture(func(b *builder) {
		b.be32(5)
		b.str("tEXt")
		b.pad(5)
		b.be32(0)

		b.be32(3)
		b.str("abcd")
		b.pad(3)
		b.be32(0)

		pngTIME(b, 1995, 2, 3, 4, 5, 6)
	})

	when, found, err := decodePNG(testReader(data))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(1995, 2, 3, 4, 5, 6, 0, time.UTC), when)
}

func TestPNGBadXMPSwallowed(t *testing.T) {
	data := pngFixture(func(b *builder) {
		text := "<not-xml"
		header := len(xmpKeyword) + 1 + 2 + 1 + 1
		b.be32(uint32(header + len(text)))
		b.str("iTXt")
		b.str(xmpKeyword)
		b.u8(0)
		b.u8(0)
		b.u8(0)
		b.u8(0)
		b.u8(0)
		b.str(text)
		b.be32(0)
	})

	_, found, err := decodePNG(testReader(data))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPNGBadSignature(t *testing.T) {
	var b builder
	b.be32(0x12345678)
	b.be32(0x0d0a1a0a)

	_, _, err := decodePNG(testReader(b.Bytes()))
	assert.True(t, errors.Is(err, ErrMalformed))
}
