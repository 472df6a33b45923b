package metadata

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// XMP namespaces probed for creation dates.
const (
	nsRDF       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsExif      = "http://ns.adobe.com/exif/1.0/"
	nsPhotoshop = "http://ns.adobe.com/photoshop/1.0/"
)

// xmpDateTimeOriginal scans an XMP packet for an rdf:Description element
// carrying an exif:DateTimeOriginal attribute. Invalid XML is a decode fault.
func xmpDateTimeOriginal(text string) (time.Time, bool, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return time.Time{}, false, nil
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("bad XMP packet: %w", ErrMalformed)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Space != nsRDF || se.Name.Local != "Description" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Space != nsExif || attr.Name.Local != "DateTimeOriginal" {
				continue
			}
			s := attr.Value
			if len(s) > 19 {
				s = s[:19]
			}
			t, perr := time.Parse("2006-01-02T15:04:05", s)
			if perr != nil {
				return time.Time{}, false, fmt.Errorf("bad XMP date %q: %w", s, ErrMalformed)
			}
			return t, true, nil
		}
	}
}

// xmpPhotoshopDateCreated scans an XMP packet for a photoshop:DateCreated
// element. All failures are swallowed; PNG iTXt metadata is best-effort.
func xmpPhotoshopDateCreated(text string) (time.Time, bool) {
	dec := xml.NewDecoder(strings.NewReader(text))
	inDate := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return time.Time{}, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inDate = t.Name.Space == nsPhotoshop && t.Name.Local == "DateCreated"
		case xml.EndElement:
			inDate = false
		case xml.CharData:
			if !inDate {
				continue
			}
			s := strings.TrimSpace(string(t))
			if when, perr := time.Parse("2006-01-02T15:04:05", s); perr == nil {
				return when, true
			}
			return time.Time{}, false
		}
	}
}
