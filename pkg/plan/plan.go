package plan

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DigestPrefixLen is how many digest bytes are baked into a destination
// filename, enough to make names for distinct content collide only when the
// content itself collides.
const DigestPrefixLen = 10

// Operation represents a planned move from source to destination.
type Operation struct {
	SourcePath      string
	DestinationPath string
}

// Destination computes the collection path for a file based on its creation
// date and content digest:
//
//	<root>/<YYYY>/<YYYY-MM>/<YYYY-MM-DD_HHMMSS>_<digest-prefix-hex><ext>
//
// The extension is normalized so the same content always ends up under the
// same name regardless of how the source spelled it.
func Destination(root string, filename string, createdAt time.Time, digest []byte) string {
	if len(digest) > DigestPrefixLen {
		digest = digest[:DigestPrefixLen]
	}
	name := fmt.Sprintf("%s_%s%s",
		createdAt.Format("2006-01-02_150405"),
		hex.EncodeToString(digest),
		NormalizeExt(filepath.Ext(filename)))
	return filepath.Join(root, createdAt.Format("2006"), createdAt.Format("2006-01"), name)
}

// NormalizeExt lower-cases an extension and collapses spelling variants.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".jpeg":
		return ".jpg"
	case ".tiff":
		return ".tif"
	}
	return ext
}
