package move

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/quidome/photo-organizer-go/pkg/reconcile"
)

var (
	// ErrDestinationExists is returned when attempting to move onto an existing file
	ErrDestinationExists = errors.New("destination file already exists")
)

// Result contains the outcome of one move decision.
type Result struct {
	Decision reconcile.Decision
	Success  bool
	Error    error
}

// Options configures the move behavior.
type Options struct {
	// DryRun reports what would happen without touching the filesystem.
	DryRun bool
}

// Execute performs the move decisions.
//
// It will:
// - Create destination directories if they don't exist
// - Never overwrite existing files
// - Leave skipped decisions (duplicates, already in place) untouched
func Execute(decisions []reconcile.Decision, opts Options) []Result {
	results := make([]Result, 0, len(decisions))

	for _, d := range decisions {
		result := Result{Decision: d}

		if d.Action != reconcile.ActionMove {
			result.Success = true
			results = append(results, result)
			continue
		}
		if opts.DryRun {
			result.Success = true
			results = append(results, result)
			continue
		}

		destDir := filepath.Dir(d.DestinationPath)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			result.Error = fmt.Errorf("create directory: %w", err)
			results = append(results, result)
			continue
		}

		if err := moveFile(d.SourcePath, d.DestinationPath); err != nil {
			result.Error = fmt.Errorf("move file: %w", err)
			results = append(results, result)
			continue
		}

		result.Success = true
		results = append(results, result)
	}

	return results
}

// moveFile renames src to dst, falling back to a copy-and-remove when the
// rename fails (typically across filesystems). It never overwrites dst.
func moveFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return ErrDestinationExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat destination: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode())
	if err != nil {
		if os.IsExist(err) {
			return ErrDestinationExists
		}
		return fmt.Errorf("create destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy content: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	return nil
}

// RemoveEmptyDirs removes directories under root that contain no files,
// deepest first, and returns the paths it removed. The root itself is kept.
func RemoveEmptyDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deepest first, so a directory whose only content was empty
	// subdirectories empties out before it is considered.
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] > dirs[j] })

	var removed []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		if len(entries) != 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return removed, err
		}
		removed = append(removed, dir)
	}
	return removed, nil
}
