package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQ(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{1000, "w+B"},
	}

	for _, tt := range tests {
		got := encodeVLQ(nil, tt.value)
		assert.Equal(t, tt.want, string(got), "encode %d", tt.value)

		decoded, next, ok := decodeVLQ(got, 0)
		require.True(t, ok)
		assert.Equal(t, tt.value, decoded)
		assert.Equal(t, len(got), next)
	}

	_, _, ok := decodeVLQ([]byte("g"), 0)
	assert.False(t, ok, "dangling continuation")
}
