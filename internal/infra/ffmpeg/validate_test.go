package ffmpeg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsKnownExtensions(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator()

	for _, name := range []string{"a.mp4", "b.MKV", "c.webm"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		assert.True(t, v.IsValidVideo(path), name)
	}
}

func TestValidatorRejectsNonVideos(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("data"), 0o644))

	empty := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	assert.False(t, v.IsValidVideo(txt))
	assert.False(t, v.IsValidVideo(empty))
	assert.False(t, v.IsValidVideo(filepath.Join(dir, "missing.mp4")))
	assert.False(t, v.IsValidVideo(dir))
}
