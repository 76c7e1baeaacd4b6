package finder_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/finder"
)

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{
		"/proj/index.marko",
		"/proj/components/card/index.marko",
		"/proj/components/card/style.css",
		"/proj/node_modules/x/index.marko",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("<p/>"), 0o644))
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "recursive",
			patterns: []string{"**/*.marko"},
			want:     []string{"components/card/index.marko", "index.marko", "node_modules/x/index.marko"},
		},
		{
			name:     "overlapping patterns are merged",
			patterns: []string{"components/**/*.marko", "*.marko", "**/card/*.marko"},
			want:     []string{"components/card/index.marko", "index.marko"},
		},
		{
			name:     "directories are not files",
			patterns: []string{"components/*"},
		},
		{
			name: "no patterns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := finder.Find(fs, "/proj", tt.patterns...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindBadPattern(t *testing.T) {
	_, err := finder.Find(afero.NewMemMapFs(), "/", "[a-")
	assert.Error(t, err)
}
