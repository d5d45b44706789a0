package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"github.com/framepick/framepick-keyframe-service/internal/domain/port"
	"github.com/framepick/framepick-keyframe-service/internal/infra/metrics"
	"github.com/framepick/framepick-keyframe-service/internal/video/chunker"
	"github.com/framepick/framepick-keyframe-service/internal/video/clips"
	"github.com/framepick/framepick-keyframe-service/internal/video/pool"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ExtractKeyframesUseCase is the two-stage extraction pipeline: the source
// video is split into bounded-duration clips, the clips fan out to a
// bounded pool running the candidate-extraction collaborator, and the
// flattened candidate set fans into a second pool running the selection
// collaborator. A hard barrier separates the stages; no candidate reaches
// selection until every clip has been processed.
type ExtractKeyframesUseCase struct {
	prober    port.DurationProber
	cutter    port.ClipCutter
	validator port.VideoValidator
	extractor port.CandidateExtractor
	selector  port.FrameSelector
	poolSize  pool.Size
	minClip   float64
	logger    *zap.Logger
}

type ExtractConfig struct {
	// PoolSize bounds both pipeline stages.
	PoolSize pool.Size
	// MinClipSeconds is the shortest tail clip the planner may emit; a
	// shorter remainder is merged into the preceding window.
	MinClipSeconds float64
}

func NewExtractKeyframesUseCase(
	prober port.DurationProber,
	cutter port.ClipCutter,
	validator port.VideoValidator,
	extractor port.CandidateExtractor,
	selector port.FrameSelector,
	logger *zap.Logger,
	cfg ExtractConfig,
) *ExtractKeyframesUseCase {
	return &ExtractKeyframesUseCase{
		prober:    prober,
		cutter:    cutter,
		validator: validator,
		extractor: extractor,
		selector:  selector,
		poolSize:  cfg.PoolSize,
		minClip:   cfg.MinClipSeconds,
		logger:    logger,
	}
}

// Extract returns the selected keyframes for one video. All-or-nothing: a
// failure in any stage fails the call, but every temporary clip is removed
// on both paths.
func (uc *ExtractKeyframesUseCase) Extract(ctx context.Context, sourcePath string, frameCount int) ([]entity.Frame, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractKeyframesUseCase.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("video.path", sourcePath),
		attribute.Int("video.frame_count", frameCount),
	)

	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", errs.ErrInvalidInput, frameCount)
	}
	if !uc.validator.IsValidVideo(sourcePath) {
		return nil, fmt.Errorf("%w: invalid or corrupted video %s", errs.ErrInvalidInput, sourcePath)
	}

	log := uc.logger.With(zap.String("video", sourcePath))

	probeStart := time.Now()
	ctxProbe, spanProbe := tracer.Start(ctx, "probe_duration")
	duration, err := uc.prober.Probe(ctxProbe, sourcePath)
	spanProbe.End()
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("probe").Observe(time.Since(probeStart).Seconds())

	workers := uc.poolSize.Resolve()
	windows, err := chunker.Plan(duration, workers, uc.minClip)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: zero-duration video %s", errs.ErrInvalidInput, sourcePath)
	}

	log.Info("planned chunk windows",
		zap.Float64("duration", duration),
		zap.Int("windows", len(windows)),
		zap.Int("workers", workers),
	)

	// One lifecycle scope per call; the token keeps concurrent extracts of
	// the same source from colliding on clip names.
	lifecycle := clips.NewLifecycle(log)
	defer lifecycle.Cleanup()
	token := uuid.NewString()[:8]

	cutStart := time.Now()
	ctxCut, spanCut := tracer.Start(ctx, "cut_clips")
	clipPaths := make([]string, 0, len(windows))
	for _, w := range windows {
		clipPath, err := uc.cutter.Cut(ctxCut, sourcePath, w, token)
		if err != nil {
			spanCut.End()
			return nil, err
		}
		lifecycle.Track(clipPath)
		clipPaths = append(clipPaths, clipPath)
		metrics.ClipsCutTotal.Inc()
	}
	spanCut.End()
	metrics.StageDuration.WithLabelValues("cut").Observe(time.Since(cutStart).Seconds())

	// Stage 1: candidate extraction over the clip pool. Results come back
	// in window order, so the flattened list concatenates chunks
	// chronologically.
	exStart := time.Now()
	ctxEx, spanEx := tracer.Start(ctx, "extract_candidates")
	perClip, err := pool.Map(ctxEx, uc.poolSize, clipPaths,
		func(ctx context.Context, clipPath string) ([]entity.Frame, error) {
			return uc.extractor.ExtractCandidates(ctx, clipPath)
		})
	spanEx.End()
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	var candidates []entity.Frame
	for _, frames := range perClip {
		candidates = append(candidates, frames...)
	}
	metrics.CandidatesExtractedTotal.Add(float64(len(candidates)))

	// Clips are released before selection so temporary disk usage is
	// bounded to one generation of chunks.
	lifecycle.Cleanup()

	selStart := time.Now()
	ctxSel, spanSel := tracer.Start(ctx, "select_keyframes")
	selected, err := pool.Map(ctxSel, uc.poolSize, [][]entity.Frame{candidates},
		func(ctx context.Context, batch []entity.Frame) ([]entity.Frame, error) {
			return uc.selector.SelectBest(ctx, batch, frameCount)
		})
	spanSel.End()
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("select").Observe(time.Since(selStart).Seconds())

	keyframes := selected[0]
	metrics.KeyframesSelectedTotal.Add(float64(len(keyframes)))

	log.Info("keyframes extracted",
		zap.Int("candidates", len(candidates)),
		zap.Int("keyframes", len(keyframes)),
	)
	return keyframes, nil
}

// ExtractFromDir walks dirPath and extracts keyframes from every valid
// video found, keyed by path. A failure on any video aborts the whole
// batch; callers wanting per-file isolation wrap files individually.
func (uc *ExtractKeyframesUseCase) ExtractFromDir(ctx context.Context, dirPath string, frameCount int) (map[string][]entity.Frame, error) {
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: directory %s", errs.ErrNotFound, dirPath)
	}

	results := make(map[string][]entity.Frame)
	err = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !uc.validator.IsValidVideo(path) {
			return nil
		}
		frames, err := uc.Extract(ctx, path, frameCount)
		if err != nil {
			return err
		}
		results[path] = frames
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SaveFrameToDisk persists one in-memory frame under dir as name+ext.
func SaveFrameToDisk(frame entity.Frame, dir, name, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name+ext)
	if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
		return "", fmt.Errorf("write frame: %w", err)
	}
	return path, nil
}
