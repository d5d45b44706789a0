package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"go.uber.org/zap"
)

// Cutter materializes windows of a source video as temporary clip files
// using copy-codec stream selection, so no re-encode happens on the cut
// path.
type Cutter struct {
	binary  string
	tempDir string
	logger  *zap.Logger
}

func NewCutter(binary, tempDir string, logger *zap.Logger) (*Cutter, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp clips dir: %w", err)
	}
	return &Cutter{binary: binary, tempDir: tempDir, logger: logger}, nil
}

// ClipPath is the deterministic clip name for a window:
// {tempDir}/{base}_{token}_{startMs}_{endMs}.mp4. The token is unique per
// extraction call, so concurrent extracts of the same source cannot
// collide.
func (c *Cutter) ClipPath(sourcePath string, window entity.Window, token string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.tempDir,
		fmt.Sprintf("%s_%s_%d_%d.mp4", base, token, window.StartMs(), window.EndMs()))
}

// Cut invokes the subclip operation and returns the clip path. No retry is
// applied; the caller owns retry policy.
func (c *Cutter) Cut(ctx context.Context, sourcePath string, window entity.Window, token string) (string, error) {
	clipPath := c.ClipPath(sourcePath, window, token)

	cmd := exec.CommandContext(ctx, c.binary,
		"-y", "-hide_banner", "-loglevel", "panic",
		"-i", sourcePath,
		"-ss", fmt.Sprintf("%.2f", window.Start),
		"-t", fmt.Sprintf("%.2f", window.Duration()),
		"-vcodec", "copy",
		"-acodec", "copy",
		clipPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", &errs.ExternalToolError{
			Tool:   "ffmpeg",
			Path:   sourcePath,
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}
	if _, err := os.Stat(clipPath); err != nil {
		return "", &errs.ExternalToolError{
			Tool: "ffmpeg",
			Path: sourcePath,
			Err:  fmt.Errorf("no clip produced at %s", clipPath),
		}
	}

	c.logger.Debug("clip cut",
		zap.String("clip", clipPath),
		zap.Float64("start", window.Start),
		zap.Float64("end", window.End),
	)
	return clipPath, nil
}
