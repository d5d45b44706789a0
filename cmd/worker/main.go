package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framepick/framepick-keyframe-service/internal/infra/config"
	"github.com/framepick/framepick-keyframe-service/internal/infra/email"
	"github.com/framepick/framepick-keyframe-service/internal/infra/ffmpeg"
	"github.com/framepick/framepick-keyframe-service/internal/infra/frameproc"
	"github.com/framepick/framepick-keyframe-service/internal/infra/metrics"
	miniostorage "github.com/framepick/framepick-keyframe-service/internal/infra/minio"
	"github.com/framepick/framepick-keyframe-service/internal/infra/postgres"
	"github.com/framepick/framepick-keyframe-service/internal/infra/rabbitmq"
	"github.com/framepick/framepick-keyframe-service/internal/infra/tracing"
	"github.com/framepick/framepick-keyframe-service/internal/usecase"
	"github.com/framepick/framepick-keyframe-service/internal/video/pool"
	"github.com/framepick/framepick-keyframe-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting framepick-keyframe-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer dbPool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		UseSSL:        cfg.MinIOUseSSL,
		UploadBucket:  cfg.MinIOUploadBucket,
		ArchiveBucket: cfg.MinIOArchiveBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Media infra
	prober := ffmpeg.NewProber(cfg.FFmpegBinary, log)
	cutter, err := ffmpeg.NewCutter(cfg.FFmpegBinary, cfg.TempClipsDir, log)
	fatalOnErr(err, "create clip cutter")
	validator := ffmpeg.NewValidator()
	archiver := ffmpeg.NewZipCreator()
	extractor := frameproc.NewExtractor(cfg.FrameprocBinary, log)
	selector := frameproc.NewSelector(cfg.FrameprocBinary, log)

	poolSize := pool.PlatformDefault()
	if cfg.ExtractPoolSize > 0 {
		poolSize = pool.Fixed(cfg.ExtractPoolSize)
	}

	pipeline := usecase.NewExtractKeyframesUseCase(
		prober, cutter, validator, extractor, selector, log,
		usecase.ExtractConfig{
			PoolSize:       poolSize,
			MinClipSeconds: cfg.MinClipSeconds,
		},
	)

	// Repositories and notifications
	repo := postgres.NewJobRepository(dbPool)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	uc := usecase.NewProcessJobUseCase(
		repo, storage, pipeline, archiver,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessJobConfig{
			TempDir:           cfg.TempClipsDir,
			MaxRetries:        cfg.MaxRetries,
			DefaultFrameCount: cfg.DefaultFrameCount,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQExtractQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("framepick-keyframe-service started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("framepick-keyframe-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
