package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestLoadImageFilesDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "frame-10.jpg")
	touch(t, dir, "frame-2.png")
	touch(t, dir, "zebra.JPG")
	touch(t, dir, "apple.bmp")
	touch(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o700))

	files, err := LoadImageFiles(dir)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f.Path)
	}
	assert.Equal(t, []string{"frame-2.png", "frame-10.jpg", "apple.bmp", "zebra.JPG"}, names)
	assert.Equal(t, 2, files[0].Frame)
	assert.Equal(t, -1, files[2].Frame)
	assert.Len(t, Paths(files), 4)
}

func TestLoadImageFilesSingleFile(t *testing.T) {
	path := touch(t, t.TempDir(), "input.raw")

	files, err := LoadImageFiles(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, path, files[0].Path)
}

func TestLoadImageFilesMissing(t *testing.T) {
	_, err := LoadImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFrameNumber(t *testing.T) {
	assert.Equal(t, 7, frameNumber("frame-7.jpg"))
	assert.Equal(t, -1, frameNumber("frame-x.jpg"))
	assert.Equal(t, -1, frameNumber("img-7.jpg"))
}
