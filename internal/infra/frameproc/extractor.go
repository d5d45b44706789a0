// Package frameproc adapts the external frame-quality collaborator binary
// to the collaborator ports. The binary holds native decoder state, so each
// invocation is an isolated process; frames cross the boundary as image
// files in a per-invocation scratch directory and are loaded into memory
// before the directory is removed.
package frameproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"go.uber.org/zap"
)

// Extractor runs the candidate-frame extraction collaborator against one
// clip file.
type Extractor struct {
	binary string
	logger *zap.Logger
}

func NewExtractor(binary string, logger *zap.Logger) *Extractor {
	return &Extractor{binary: binary, logger: logger}
}

func (e *Extractor) ExtractCandidates(ctx context.Context, clipPath string) ([]entity.Frame, error) {
	scratch, err := os.MkdirTemp("", "candidates-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	cmd := exec.CommandContext(ctx, e.binary,
		"extract",
		"--clip", clipPath,
		"--out", scratch,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &errs.CollaboratorError{
			Collaborator: "extraction",
			Path:         clipPath,
			Err:          fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))),
		}
	}

	frames, err := loadFrames(scratch, clipPath)
	if err != nil {
		return nil, &errs.CollaboratorError{Collaborator: "extraction", Path: clipPath, Err: err}
	}

	e.logger.Debug("candidates extracted",
		zap.String("clip", clipPath),
		zap.Int("count", len(frames)),
	)
	return frames, nil
}

// loadFrames reads every image the collaborator produced, in lexical order,
// which is the collaborator's own emission order.
func loadFrames(dir, sourceClip string) ([]entity.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	frames := make([]entity.Frame, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		frames = append(frames, entity.Frame{
			Data:       data,
			Format:     strings.TrimPrefix(filepath.Ext(name), "."),
			SourceClip: sourceClip,
		})
	}
	return frames, nil
}
