package ffmpeg

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"go.uber.org/zap"
)

// Compressor runs per-file CRF compression through the external tool.
type Compressor struct {
	binary string
	logger *zap.Logger
}

func NewCompressor(binary string, logger *zap.Logger) *Compressor {
	return &Compressor{binary: binary, logger: logger}
}

// Compress validates the job and runs one compression invocation. Returns
// true on success; failures carry the tool diagnostics.
func (c *Compressor) Compress(ctx context.Context, job entity.CompressionJob) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}

	codecName, err := job.Codec.FFmpegName()
	if err != nil {
		return false, err
	}

	outPath := job.OutputPath()
	args := []string{"-hide_banner", "-loglevel", "error"}
	if job.ForceOverwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}
	args = append(args,
		"-i", job.SourcePath,
		"-vcodec", codecName,
		"-crf", strconv.Itoa(job.CRF),
		outPath,
	)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return false, &errs.ExternalToolError{
			Tool:   "ffmpeg",
			Path:   job.SourcePath,
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}

	c.logger.Info("video compressed",
		zap.String("source", job.SourcePath),
		zap.String("output", outPath),
		zap.Int("crf", job.CRF),
		zap.String("codec", string(job.Codec)),
	)
	return true, nil
}
