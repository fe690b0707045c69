package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lookout-vision/lookout/internal/imageio"
)

// selector decides which files enter a batch run. Exclusions always win.
// With include globs configured a file must match one of them; with none,
// the detection input policy applies, so a bare directory argument picks up
// exactly the files Detect would accept.
type selector struct {
	includes []string
	excludes []string
}

func (s selector) selects(path string) bool {
	if matchesGlob(path, s.excludes) {
		return false
	}
	if len(s.includes) > 0 {
		return matchesGlob(path, s.includes)
	}
	return imageio.IsSupportedImage(path)
}

// matchesGlob matches the file's basename against each pattern.
func matchesGlob(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// discoverImageFiles expands args (files or directories) into the image
// paths to process. Files named explicitly still go through the selector,
// so excludes apply to them too.
func discoverImageFiles(args []string, recursive bool, includes, excludes []string) ([]string, error) {
	sel := selector{includes: includes, excludes: excludes}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if sel.selects(arg) {
				paths = append(paths, arg)
			}
			continue
		}

		walkErr := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if !recursive && path != arg {
					return fs.SkipDir
				}
				return nil
			}
			if sel.selects(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	return paths, nil
}
