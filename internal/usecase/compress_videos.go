package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"github.com/framepick/framepick-keyframe-service/internal/domain/port"
	"github.com/framepick/framepick-keyframe-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CompressVideosUseCase runs per-file compression and the directory-wide
// bulk orchestrator.
type CompressVideosUseCase struct {
	compressor port.VideoCompressor
	validator  port.VideoValidator
	logger     *zap.Logger
}

func NewCompressVideosUseCase(
	compressor port.VideoCompressor,
	validator port.VideoValidator,
	logger *zap.Logger,
) *CompressVideosUseCase {
	return &CompressVideosUseCase{
		compressor: compressor,
		validator:  validator,
		logger:     logger,
	}
}

// Compress compresses one file after validating it is a playable video.
func (uc *CompressVideosUseCase) Compress(ctx context.Context, job entity.CompressionJob) (bool, error) {
	if !uc.validator.IsValidVideo(job.SourcePath) {
		return false, fmt.Errorf("%w: invalid or corrupted video %s", errs.ErrInvalidInput, job.SourcePath)
	}
	ok, err := uc.compressor.Compress(ctx, job)
	if err != nil {
		metrics.CompressionsTotal.WithLabelValues("failed").Inc()
		return false, err
	}
	metrics.CompressionsTotal.WithLabelValues("succeeded").Inc()
	return ok, nil
}

// CompressAll walks dirPath and compresses every valid video found,
// returning the AND over all per-file outcomes without short-circuiting.
//
// Two passes on purpose: the file list is materialized before any
// compression runs, so a walk overlapping the output directory can never
// observe freshly written outputs and reprocess them. The boolean loses
// per-file detail; failures are logged here with their paths.
func (uc *CompressVideosUseCase) CompressAll(ctx context.Context, dirPath string, params entity.CompressionJob) (bool, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "CompressVideosUseCase.CompressAll")
	defer span.End()
	span.SetAttributes(attribute.String("dir", dirPath))

	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return false, fmt.Errorf("%w: directory %s", errs.ErrNotFound, dirPath)
	}

	// Pass 1: discover.
	var toProcess []string
	err = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && uc.validator.IsValidVideo(path) {
			toProcess = append(toProcess, path)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("walk %s: %w", dirPath, err)
	}

	uc.logger.Info("bulk compression starting",
		zap.String("dir", dirPath),
		zap.Int("videos", len(toProcess)),
	)

	// Pass 2: compress the materialized list.
	status := true
	for _, videoPath := range toProcess {
		job := params
		job.SourcePath = videoPath
		job.OutFileName = ""

		ok, err := uc.Compress(ctx, job)
		if err != nil {
			uc.logger.Warn("compression failed",
				zap.String("video", videoPath),
				zap.Error(err),
			)
			ok = false
		}
		status = status && ok
	}

	return status, nil
}
