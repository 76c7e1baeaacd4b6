package fixture_test

import (
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/fixture"
	"github.com/walteh/markols/pkg/position"
)

func TestHoverMarkers(t *testing.T) {
	src := "<div>\n" +
		"  <img src=\"a.png\">\n" +
		"  -- ^?   ^?\n" +
		"<p>é</p>\n" +
		"    ^?\n"

	want := []position.Place{
		{Line: 1, Character: 5},
		{Line: 1, Character: 10},
		{Line: 3, Character: 4},
	}

	markers := fixture.HoverMarkers(src)
	assert.Equal(t, want, slices.Collect(markers))
	assert.Equal(t, want, slices.Collect(markers), "the sequence restarts")
}

func TestHoverMarkersStopEarly(t *testing.T) {
	var got []position.Place
	for p := range fixture.HoverMarkers("ab\n^? ^?\n") {
		got = append(got, p)
		break
	}
	assert.Equal(t, []position.Place{{Line: 0, Character: 0}}, got)
}

func TestHoverMarkersOnFirstLineAreIgnored(t *testing.T) {
	assert.Empty(t, slices.Collect(fixture.HoverMarkers("^? nothing above")))
}

func TestLoadTemplates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/fixtures/hover/img.marko", []byte("<img>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/fixtures/hover/deep/p.marko", []byte("<p/>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/fixtures/hover/notes.txt", []byte("x"), 0o644))

	templates, err := fixture.LoadTemplates(fs, "/fixtures", "**/*.marko", "hover/*.marko")
	require.NoError(t, err)
	require.Len(t, templates, 2)

	assert.Equal(t, "hover/deep/p.marko", templates[0].Path)
	assert.Equal(t, "<p/>", templates[0].Source)
	assert.Equal(t, "hover/img.marko", templates[1].Path)
}

func TestLoadTemplatesBadPattern(t *testing.T) {
	_, err := fixture.LoadTemplates(afero.NewMemMapFs(), "/", "[a-")
	assert.Error(t, err)
}
