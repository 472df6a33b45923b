package createdat

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/binio"
	"github.com/quidome/photo-organizer-go/pkg/metadata"
	"github.com/sirupsen/logrus"
)

// Source describes where a CreatedAt timestamp was derived from.
//
// The priority order is:
//  1. filename
//  2. metadata
//  3. mtime
//  4. unknown
type Source string

const (
	SourceFilename Source = "filename"
	SourceMetadata Source = "metadata"
	SourceMtime    Source = "mtime"
	SourceUnknown  Source = "unknown"
)

// Result contains a best-effort creation timestamp and its source.
type Result struct {
	CreatedAt time.Time
	Source    Source
}

// DetailedResult contains all considered timestamps from different sources.
type DetailedResult struct {
	// Best is the chosen timestamp using priority: filename > metadata > mtime
	Best Result

	// Filename is the timestamp parsed from the filename
	Filename time.Time

	// Metadata is the timestamp decoded from embedded metadata (EXIF, etc.)
	Metadata time.Time

	// Filestat is the mtime from filesystem metadata
	Filestat time.Time
}

// MetadataExtractor extracts an embedded creation timestamp from media bytes.
//
// Implementations should return (t, true, nil) when a timestamp is found.
// If no timestamp exists, return (time.Time{}, false, nil).
// Errors are treated as best-effort failures by Determine.
type MetadataExtractor interface {
	CreationTime(path string, r io.ReaderAt, size int64) (time.Time, bool, error)
}

// Options configures Determine.
type Options struct {
	// Metadata optionally extracts embedded timestamps.
	//
	// If nil, the native format decoders are used.
	Metadata MetadataExtractor
}

// Determine returns the best-effort created-at timestamp for a path.
func Determine(fsys fs.FS, path string, opts Options) (Result, error) {
	detailed, err := DetermineDetailed(fsys, path, opts)
	if err != nil {
		return Result{}, err
	}
	return detailed.Best, nil
}

// DetermineDetailed returns all considered timestamps for a path.
func DetermineDetailed(fsys fs.FS, path string, opts Options) (DetailedResult, error) {
	path = filepath.Clean(path)

	info, err := fs.Stat(fsys, path)
	if err != nil {
		return DetailedResult{}, err
	}
	if info.IsDir() {
		return DetailedResult{}, fs.ErrInvalid
	}

	var result DetailedResult

	// Try filename; a date in the name is considered authoritative.
	if createdAt, ok := parseFromFilename(filepath.Base(path)); ok {
		result.Filename = createdAt
	}

	// Try metadata, but only when the filename yielded nothing: decoding is
	// the expensive step and its outcome would not be preferred anyway.
	if result.Filename.IsZero() {
		extractor := opts.Metadata
		if extractor == nil {
			extractor = decoderExtractor{}
		}
		createdAt, ok, metaErr := extractFromFile(fsys, path, extractor)
		if metaErr != nil {
			// A decode fault means no embedded timestamp, never a fatal error.
			logrus.Debugf("metadata extraction failed for %s: %v", path, metaErr)
		} else if ok {
			result.Metadata = createdAt
		}
	}

	// Get mtime
	mtime := info.ModTime()
	if !mtime.IsZero() {
		result.Filestat = mtime
	}

	// Determine best according to priority
	if !result.Filename.IsZero() {
		result.Best = Result{CreatedAt: result.Filename, Source: SourceFilename}
	} else if !result.Metadata.IsZero() {
		result.Best = Result{CreatedAt: result.Metadata, Source: SourceMetadata}
	} else if !result.Filestat.IsZero() {
		result.Best = Result{CreatedAt: result.Filestat, Source: SourceMtime}
	} else {
		result.Best = Result{CreatedAt: time.Time{}, Source: SourceUnknown}
	}

	return result, nil
}

func extractFromFile(fsys fs.FS, path string, extractor MetadataExtractor) (time.Time, bool, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return time.Time{}, false, err
	}
	defer f.Close()

	if ra, ok := f.(io.ReaderAt); ok {
		info, statErr := f.Stat()
		if statErr != nil {
			return time.Time{}, false, statErr
		}
		return extractor.CreationTime(path, ra, info.Size())
	}

	// The fs.FS contract does not promise random access; buffer the file.
	data, err := io.ReadAll(f)
	if err != nil {
		return time.Time{}, false, err
	}
	return extractor.CreationTime(path, bytes.NewReader(data), int64(len(data)))
}

// decoderExtractor runs the native binary decoders, dispatched by extension.
type decoderExtractor struct{}

func (decoderExtractor) CreationTime(path string, r io.ReaderAt, size int64) (time.Time, bool, error) {
	format := metadata.FormatForPath(path)
	if format == metadata.FormatUnknown || format == metadata.FormatBMP {
		return time.Time{}, false, nil
	}
	return metadata.Decode(binio.NewReader(r, size), format)
}

// filenameFormats are matched in order against a strict-length prefix of the
// base name; the first layout that parses wins.
var filenameFormats = []struct {
	layout string
	length int
}{
	{"2006-01-02_150405", 17},
	{"2006-01-02", 10},
	{"2006-01", 7},
	{"IMG_20060102_150405", 19},
	{"IMG-20060102", 12},
	{"VID_20060102", 12},
}

func parseFromFilename(filename string) (time.Time, bool) {
	for _, f := range filenameFormats {
		if len(filename) < f.length {
			continue
		}
		if t, err := time.Parse(f.layout, filename[:f.length]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
