package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
)

// Codec is the output video codec for compression.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
)

// FFmpegName maps the codec to the encoder name ffmpeg expects.
func (c Codec) FFmpegName() (string, error) {
	switch c {
	case CodecH264:
		return "libx264", nil
	case CodecH265:
		return "libx265", nil
	default:
		return "", fmt.Errorf("%w: unsupported codec %q", errs.ErrInvalidInput, string(c))
	}
}

// CompressionJob describes one per-file compression request. Parameters are
// validated at acceptance time, before any external process is spawned.
type CompressionJob struct {
	SourcePath     string
	OutDirPath     string
	OutFileName    string
	CRF            int
	Codec          Codec
	ForceOverwrite bool
}

// OutputPath resolves the output location. An empty OutDirPath means
// alongside the source; an empty OutFileName keeps the source name with a
// "_compressed" suffix so the output never collides with the input.
func (j CompressionJob) OutputPath() string {
	dir := j.OutDirPath
	if dir == "" {
		dir = filepath.Dir(j.SourcePath)
	}
	name := j.OutFileName
	if name == "" {
		base := filepath.Base(j.SourcePath)
		ext := filepath.Ext(base)
		name = strings.TrimSuffix(base, ext) + "_compressed" + ext
	}
	return filepath.Join(dir, name)
}

func (j CompressionJob) Validate() error {
	if _, err := os.Stat(j.SourcePath); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, j.SourcePath)
	}
	if j.CRF < 0 || j.CRF > 51 {
		return fmt.Errorf("%w: crf %d outside [0,51]", errs.ErrInvalidInput, j.CRF)
	}
	if _, err := j.Codec.FFmpegName(); err != nil {
		return err
	}
	if !j.ForceOverwrite {
		if _, err := os.Stat(j.OutputPath()); err == nil {
			return fmt.Errorf("%w: output %s already exists and overwrite not forced",
				errs.ErrInvalidInput, j.OutputPath())
		}
	}
	return nil
}
