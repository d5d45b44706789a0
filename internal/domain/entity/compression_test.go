package entity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSourceVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))
	return path
}

func TestCodecFFmpegName(t *testing.T) {
	name, err := CodecH264.FFmpegName()
	require.NoError(t, err)
	assert.Equal(t, "libx264", name)

	name, err = CodecH265.FFmpegName()
	require.NoError(t, err)
	assert.Equal(t, "libx265", name)

	_, err = Codec("av1").FFmpegName()
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestCompressionJobValidate(t *testing.T) {
	src := newSourceVideo(t)

	job := CompressionJob{SourcePath: src, CRF: 23, Codec: CodecH264}
	assert.NoError(t, job.Validate())
}

func TestCompressionJobValidateMissingSource(t *testing.T) {
	job := CompressionJob{SourcePath: "/nope/missing.mp4", CRF: 23, Codec: CodecH264}
	assert.ErrorIs(t, job.Validate(), errs.ErrNotFound)
}

func TestCompressionJobValidateCRFRange(t *testing.T) {
	src := newSourceVideo(t)

	for _, crf := range []int{-1, 52} {
		job := CompressionJob{SourcePath: src, CRF: crf, Codec: CodecH264}
		assert.ErrorIs(t, job.Validate(), errs.ErrInvalidInput)
	}
}

func TestCompressionJobValidateOutputCollision(t *testing.T) {
	src := newSourceVideo(t)
	outDir := t.TempDir()

	job := CompressionJob{
		SourcePath:  src,
		OutDirPath:  outDir,
		OutFileName: "out.mp4",
		CRF:         23,
		Codec:       CodecH264,
	}
	require.NoError(t, os.WriteFile(job.OutputPath(), []byte("existing"), 0o644))

	assert.ErrorIs(t, job.Validate(), errs.ErrInvalidInput)

	job.ForceOverwrite = true
	assert.NoError(t, job.Validate())
}

func TestCompressionJobOutputPathDefaults(t *testing.T) {
	job := CompressionJob{SourcePath: "/videos/trip.mp4"}
	assert.Equal(t, "/videos/trip_compressed.mp4", job.OutputPath())

	job.OutDirPath = "/out"
	job.OutFileName = "small.mp4"
	assert.Equal(t, "/out/small.mp4", job.OutputPath())
}
