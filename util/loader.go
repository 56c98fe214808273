// Package util - Input discovery for the command line.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from a frame-<n> file name, -1 otherwise.
	Frame int
}

// imageExtensions are the file types OpenCV decodes in every default build.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has an image file extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadImageFiles resolves path to the image files it names. A file is
// returned as is, whatever its extension; a directory yields its image
// files, numbered frames first in frame order, then the rest by name.
//
// Arguments:
// - path: An image file or a directory of image files.
//
// Returns:
// - []ImageFile: The image files.
// - error: Error if path cannot be read.
func LoadImageFiles(path string) ([]ImageFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	if !info.IsDir() {
		return []ImageFile{{Path: path, Frame: frameNumber(filepath.Base(path))}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing %s", path)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		files = append(files, ImageFile{
			Path:  filepath.Join(path, entry.Name()),
			Frame: frameNumber(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		fi, fj := files[i].Frame, files[j].Frame
		switch {
		case fi >= 0 && fj >= 0:
			return fi < fj
		case fi >= 0 || fj >= 0:
			return fi >= 0
		default:
			return files[i].Path < files[j].Path
		}
	})

	return files, nil
}

// Paths returns the paths of files.
func Paths(files []ImageFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func frameNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(base, "frame-") {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(base, "frame-"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
