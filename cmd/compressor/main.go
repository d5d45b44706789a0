// Command compressor runs bulk video compression over a local directory.
// It walks COMPRESS_INPUT_DIR, compresses every valid video it finds, and
// exits non-zero unless every file succeeded.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/infra/config"
	"github.com/framepick/framepick-keyframe-service/internal/infra/ffmpeg"
	"github.com/framepick/framepick-keyframe-service/internal/usecase"
	"github.com/framepick/framepick-keyframe-service/pkg/logger"
	"go.uber.org/zap"
)

type compressorConfig struct {
	InputDir       string `env:"COMPRESS_INPUT_DIR,required"`
	OutputDir      string `env:"COMPRESS_OUTPUT_DIR" envDefault:""`
	ForceOverwrite bool   `env:"COMPRESS_FORCE_OVERWRITE" envDefault:"false"`
}

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	var ccfg compressorConfig
	fatalOnErr(env.Parse(&ccfg), "load compressor config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	compressor := ffmpeg.NewCompressor(cfg.FFmpegBinary, log)
	validator := ffmpeg.NewValidator()
	uc := usecase.NewCompressVideosUseCase(compressor, validator, log)

	params := entity.CompressionJob{
		OutDirPath:     ccfg.OutputDir,
		CRF:            cfg.CompressionCRF,
		Codec:          entity.Codec(cfg.CompressionCodec),
		ForceOverwrite: ccfg.ForceOverwrite,
	}

	ok, err := uc.CompressAll(ctx, ccfg.InputDir, params)
	if err != nil {
		log.Error("bulk compression aborted", zap.Error(err))
		os.Exit(1)
	}
	if !ok {
		log.Warn("bulk compression finished with failures", zap.String("dir", ccfg.InputDir))
		os.Exit(1)
	}

	log.Info("bulk compression finished", zap.String("dir", ccfg.InputDir))
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
