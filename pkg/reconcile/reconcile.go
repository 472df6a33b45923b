package reconcile

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/plan"
)

// Action describes what should happen for a source file.
type Action string

const (
	ActionMove             Action = "move"
	ActionSkippedDuplicate Action = "skipped_duplicate"
	ActionSkippedInPlace   Action = "skipped_in_place"
)

// Decision describes what should happen for a given source file.
type Decision struct {
	SourcePath      string
	DestinationPath string
	Action          Action

	// DuplicateOf names the file already holding this content when the
	// action is ActionSkippedDuplicate.
	DuplicateOf string
}

// Source is one scanned file with its attributed creation timestamp.
type Source struct {
	Path      string
	CreatedAt time.Time
}

// Index tracks the content digests already present in the collection, so a
// file's content enters the collection exactly once across all source paths.
type Index struct {
	seen map[[sha256.Size]byte]string
}

func NewIndex() *Index {
	return &Index{seen: make(map[[sha256.Size]byte]string)}
}

func (x *Index) add(digest [sha256.Size]byte, path string) {
	x.seen[digest] = path
}

func (x *Index) lookup(digest [sha256.Size]byte) (string, bool) {
	p, ok := x.seen[digest]
	return p, ok
}

// Decide computes a move decision for every source, in ascending timestamp
// order (ties broken by path). The oldest copy of duplicated content wins;
// later identical files are skipped. A file already at its computed
// destination is left in place.
func Decide(collectionRoot string, sources []Source, index *Index) ([]Decision, error) {
	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].Path < ordered[j].Path
	})

	decisions := make([]Decision, 0, len(ordered))
	for _, src := range ordered {
		digest, err := FileDigest(src.Path)
		if err != nil {
			return nil, err
		}

		if canonical, ok := index.lookup(digest); ok {
			decisions = append(decisions, Decision{
				SourcePath:  src.Path,
				Action:      ActionSkippedDuplicate,
				DuplicateOf: canonical,
			})
			continue
		}
		index.add(digest, src.Path)

		dest := plan.Destination(collectionRoot, filepath.Base(src.Path), src.CreatedAt, digest[:])
		if sameFilePath(src.Path, dest) {
			decisions = append(decisions, Decision{
				SourcePath:      src.Path,
				DestinationPath: dest,
				Action:          ActionSkippedInPlace,
			})
			continue
		}

		decisions = append(decisions, Decision{
			SourcePath:      src.Path,
			DestinationPath: dest,
			Action:          ActionMove,
		})
	}

	return decisions, nil
}

// FileDigest returns the SHA-256 digest of a file's entire content.
func FileDigest(path string) ([sha256.Size]byte, error) {
	var out [sha256.Size]byte

	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

func sameFilePath(a, b string) bool {
	ca, err := filepath.Abs(a)
	if err != nil {
		return a == b
	}
	cb, err := filepath.Abs(b)
	if err != nil {
		return a == b
	}
	return ca == cb
}
