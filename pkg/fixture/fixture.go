// Package fixture reads template fixtures and the hover markers written inside them.
package fixture

import (
	"iter"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/walteh/markols/pkg/finder"
	"github.com/walteh/markols/pkg/position"
	"gitlab.com/tozd/go/errors"
)

const hoverMarker = "^?"

// HoverMarkers yields the place each `^?` marker points at: the character directly above the caret. The
// sequence can be ranged over any number of times.
func HoverMarkers(src string) iter.Seq[position.Place] {
	return func(yield func(position.Place) bool) {
		text := position.NewText(src)
		for line := 1; line < text.LineCount(); line++ {
			content := text.Line(line)
			from := 0
			for {
				idx := strings.Index(content[from:], hoverMarker)
				if idx < 0 {
					break
				}
				idx += from
				from = idx + len(hoverMarker)

				column := utf8.RuneCountInString(content[:idx])
				if !yield(placeAbove(text, line-1, column)) {
					return
				}
			}
		}
	}
}

func placeAbove(text *position.Text, line, runes int) position.Place {
	above := text.Line(line)
	start := text.OffsetAt(position.Place{Line: line})
	off := 0
	for i := 0; i < runes && off < len(above); i++ {
		_, size := utf8.DecodeRuneInString(above[off:])
		off += size
	}
	return text.PlaceAt(start + off)
}

// Template is one fixture file.
type Template struct {
	// Path is slash separated and relative to the fixture root.
	Path   string
	Source string
}

// LoadTemplates reads every file under root matching one of the doublestar patterns, sorted by path.
func LoadTemplates(fs afero.Fs, root string, patterns ...string) ([]Template, error) {
	paths, err := finder.Find(fs, root, patterns...)
	if err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(fs, filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			return nil, errors.Errorf("reading fixture %s: %w", p, err)
		}
		templates = append(templates, Template{Path: p, Source: string(data)})
	}
	return templates, nil
}
