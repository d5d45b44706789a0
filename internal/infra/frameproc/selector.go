package frameproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"go.uber.org/zap"
)

// Selector runs the best-frame selection collaborator over the complete
// candidate set.
type Selector struct {
	binary string
	logger *zap.Logger
}

func NewSelector(binary string, logger *zap.Logger) *Selector {
	return &Selector{binary: binary, logger: logger}
}

// SelectBest materializes the candidates for the collaborator, invokes it
// with the target count, and loads back the selected frames. The order the
// collaborator writes is the final presentation order.
func (s *Selector) SelectBest(ctx context.Context, candidates []entity.Frame, count int) ([]entity.Frame, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", errs.ErrInvalidInput, count)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scratch, err := os.MkdirTemp("", "selection-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	inDir := filepath.Join(scratch, "in")
	outDir := filepath.Join(scratch, "out")
	for _, d := range []string{inDir, outDir} {
		if err := os.Mkdir(d, 0o755); err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
	}

	for i, frame := range candidates {
		name := fmt.Sprintf("candidate_%06d.%s", i, frame.Format)
		if err := os.WriteFile(filepath.Join(inDir, name), frame.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write candidate: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, s.binary,
		"select",
		"--in", inDir,
		"--count", strconv.Itoa(count),
		"--out", outDir,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &errs.CollaboratorError{
			Collaborator: "selection",
			Path:         inDir,
			Err:          fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))),
		}
	}

	selected, err := loadFrames(outDir, "")
	if err != nil {
		return nil, &errs.CollaboratorError{Collaborator: "selection", Path: outDir, Err: err}
	}

	s.logger.Debug("keyframes selected",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
	)
	return selected, nil
}
