package move

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quidome/photo-organizer-go/pkg/reconcile"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExecuteMovesFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "inbox", "photo.jpg")
	dst := filepath.Join(dir, "collection", "2021", "2021-05", "2021-05-01_100000_aa.jpg")
	writeFile(t, src, "pixels")

	results := Execute([]reconcile.Decision{{
		SourcePath:      src,
		DestinationPath: dst,
		Action:          reconcile.ActionMove,
	}}, Options{})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Error)
	assert.True(t, results[0].Success)

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(content))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "inbox", "photo.jpg")
	dst := filepath.Join(dir, "collection", "photo.jpg")
	writeFile(t, src, "new pixels")
	writeFile(t, dst, "old pixels")

	results := Execute([]reconcile.Decision{{
		SourcePath:      src,
		DestinationPath: dst,
		Action:          reconcile.ActionMove,
	}}, Options{})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.True(t, errors.Is(results[0].Error, ErrDestinationExists))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old pixels", string(content))

	_, err = os.Stat(src)
	assert.NoError(t, err, "source must survive a refused move")
}

func TestExecuteDryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "inbox", "photo.jpg")
	dst := filepath.Join(dir, "collection", "photo.jpg")
	writeFile(t, src, "pixels")

	results := Execute([]reconcile.Decision{{
		SourcePath:      src,
		DestinationPath: dst,
		Action:          reconcile.ActionMove,
	}}, Options{DryRun: true})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	_, err := os.Stat(src)
	assert.NoError(t, err)
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteLeavesSkippedDecisionsAlone(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "inbox", "photo.jpg")
	writeFile(t, src, "pixels")

	results := Execute([]reconcile.Decision{
		{SourcePath: src, Action: reconcile.ActionSkippedDuplicate, DuplicateOf: "elsewhere.jpg"},
		{SourcePath: src, Action: reconcile.ActionSkippedInPlace},
	}, Options{})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.NoError(t, r.Error)
	}
	_, err := os.Stat(src)
	assert.NoError(t, err)
}

func TestRemoveEmptyDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "keep"), 0o755))
	writeFile(t, filepath.Join(root, "keep", "photo.jpg"), "pixels")

	removed, err := RemoveEmptyDirs(root)
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	_, err = os.Stat(filepath.Join(root, "a"))
	assert.True(t, os.IsNotExist(err), "nested empty tree should be gone")
	_, err = os.Stat(filepath.Join(root, "keep", "photo.jpg"))
	assert.NoError(t, err)
	_, err = os.Stat(root)
	assert.NoError(t, err, "root itself is kept")
}

func TestRemoveEmptyDirsNothingToDo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "photo.jpg"), "pixels")

	removed, err := RemoveEmptyDirs(root)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
