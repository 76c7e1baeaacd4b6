// Package finder discovers template files with doublestar patterns.
package finder

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Find returns the slash separated paths of the files under root matching any of the patterns,
// deduplicated and sorted.
func Find(fs afero.Fs, root string, patterns ...string) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(fs, root))

	seen := map[string]bool{}
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("matching %q under %s: %w", pattern, root, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
