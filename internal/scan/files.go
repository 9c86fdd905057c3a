// Package scan finds the image files under the paths given for bulk intake.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// FileItem is an image file found by a scan.
type FileItem struct {
	Path string
	Size int64
}

// FileItems is a slice of FileItem
type FileItems []FileItem

// Paths returns just the file paths.
func (fi FileItems) Paths() []string {
	out := make([]string, len(fi))
	for i, f := range fi {
		out[i] = f.Path
	}
	return out
}

func searchTree(ctx context.Context, dir string, m *FileItems) error {
	visit := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsImage(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() == 0 {
			return nil
		}
		*m = append(*m, FileItem{Path: p, Size: info.Size()})
		return nil
	}
	return filepath.WalkDir(dir, visit)
}

// Run collects image files from paths. Directories are searched
// recursively, skipping hidden ones; files are taken as given, whatever
// their extension, so that a user can pick a file the scan would not have
// recognised. Directory results are sorted by path; explicit files keep their
// position.
func Run(ctx context.Context, paths ...string) (FileItems, error) {
	var out FileItems
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return out, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, FileItem{Path: p, Size: info.Size()})
			continue
		}
		var found FileItems
		if err := searchTree(ctx, p, &found); err != nil {
			return out, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
		out = append(out, found...)
	}
	return out, nil
}

// Extensions are the file name extensions of the images the intake can read
// or at least store.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff", ".heic", ".heif"}

// IsImage checks if a file name has one of Extensions.
func IsImage(n string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(n)))
}
