package convert

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var errNotDir = errors.New("not a directory")

// Image file extensions eligible for conversion (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".gif":  true,
}

// DiscoverOptions controls which files a walk yields.
type DiscoverOptions struct {
	// ReencodeWebP includes files that are already WebP. By default they
	// are skipped so a converted tree is not reprocessed.
	ReencodeWebP bool
}

// Discover walks root and returns the relative paths of all convertible
// image files, sorted lexicographically for deterministic processing order.
// Extension matching is case-insensitive. Symlinks are skipped, not
// followed, so cycles cannot occur. A missing or non-directory root is
// fatal and reported as *DiscoveryError.
func Discover(root string, opts DiscoverOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Root: root, Err: errNotDir}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped, not fatal.
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".webp" && !opts.ReencodeWebP {
			return nil
		}
		if !imageExtensions[ext] && ext != ".webp" {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}

	sort.Strings(files)
	return files, nil
}
