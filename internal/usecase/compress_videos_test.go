package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCompressor records invocations and fails for configured sources.
type fakeCompressor struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
	errFor  map[string]error
}

func (c *fakeCompressor) Compress(_ context.Context, job entity.CompressionJob) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, job.SourcePath)
	if err, ok := c.errFor[job.SourcePath]; ok {
		return false, err
	}
	if c.failFor[job.SourcePath] {
		return false, nil
	}
	return true, nil
}

func writeVideos(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestCompressAllSucceeds(t *testing.T) {
	dir := t.TempDir()
	writeVideos(t, dir, "a.mp4", "b.mp4")

	comp := &fakeCompressor{}
	uc := NewCompressVideosUseCase(comp, &fakeValidator{valid: true}, zap.NewNop())

	ok, err := uc.CompressAll(context.Background(), dir, entity.CompressionJob{CRF: 23, Codec: entity.CodecH264})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, comp.calls, 2)
}

func TestCompressAllOneFailureNoShortCircuit(t *testing.T) {
	dir := t.TempDir()
	paths := writeVideos(t, dir, "a.mp4", "b.mp4", "c.mp4")

	comp := &fakeCompressor{errFor: map[string]error{
		paths[1]: errors.New("encoder crashed"),
	}}
	uc := NewCompressVideosUseCase(comp, &fakeValidator{valid: true}, zap.NewNop())

	ok, err := uc.CompressAll(context.Background(), dir, entity.CompressionJob{CRF: 23, Codec: entity.CodecH264})
	require.NoError(t, err)

	// The aggregate is false, but every per-file invocation still ran.
	assert.False(t, ok)
	assert.Len(t, comp.calls, 3)
}

func TestCompressAllFalseStatusAggregates(t *testing.T) {
	dir := t.TempDir()
	paths := writeVideos(t, dir, "a.mp4", "b.mp4")

	comp := &fakeCompressor{failFor: map[string]bool{paths[0]: true}}
	uc := NewCompressVideosUseCase(comp, &fakeValidator{valid: true}, zap.NewNop())

	ok, err := uc.CompressAll(context.Background(), dir, entity.CompressionJob{CRF: 23, Codec: entity.CodecH264})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompressAllSkipsNonVideos(t *testing.T) {
	dir := t.TempDir()
	writeVideos(t, dir, "a.mp4")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	comp := &fakeCompressor{}
	uc := NewCompressVideosUseCase(comp, &fakeValidator{valid: true}, zap.NewNop())

	ok, err := uc.CompressAll(context.Background(), dir, entity.CompressionJob{CRF: 23, Codec: entity.CodecH264})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, comp.calls, 1)
}

func TestCompressAllWalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "season1")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeVideos(t, dir, "a.mp4")
	writeVideos(t, sub, "b.mp4")

	comp := &fakeCompressor{}
	uc := NewCompressVideosUseCase(comp, &fakeValidator{valid: true}, zap.NewNop())

	ok, err := uc.CompressAll(context.Background(), dir, entity.CompressionJob{CRF: 23, Codec: entity.CodecH264})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, comp.calls, 2)
}

func TestCompressAllMissingDir(t *testing.T) {
	uc := NewCompressVideosUseCase(&fakeCompressor{}, &fakeValidator{valid: true}, zap.NewNop())

	_, err := uc.CompressAll(context.Background(), "/nope/missing", entity.CompressionJob{CRF: 23, Codec: entity.CodecH264})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCompressRejectsInvalidVideo(t *testing.T) {
	uc := NewCompressVideosUseCase(&fakeCompressor{}, &fakeValidator{valid: false}, zap.NewNop())

	_, err := uc.Compress(context.Background(), entity.CompressionJob{SourcePath: "/v/a.mp4", CRF: 23, Codec: entity.CodecH264})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}
