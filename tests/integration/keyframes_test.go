package integration

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/infra/email"
	"github.com/framepick/framepick-keyframe-service/internal/infra/ffmpeg"
	"github.com/framepick/framepick-keyframe-service/internal/infra/frameproc"
	miniostorage "github.com/framepick/framepick-keyframe-service/internal/infra/minio"
	"github.com/framepick/framepick-keyframe-service/internal/infra/postgres"
	"github.com/framepick/framepick-keyframe-service/internal/infra/rabbitmq"
	"github.com/framepick/framepick-keyframe-service/internal/usecase"
	"github.com/framepick/framepick-keyframe-service/internal/video/pool"
	"github.com/framepick/framepick-keyframe-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// fakeFrameprocScript is a stand-in collaborator binary implementing the
// extract/select CLI contract: extract emits three jpegs per clip, select
// copies the first --count candidates.
const fakeFrameprocScript = `#!/bin/sh
set -e
mode="$1"; shift
while [ $# -gt 0 ]; do
  case "$1" in
    --clip) clip="$2"; shift 2 ;;
    --in) in="$2"; shift 2 ;;
    --out) out="$2"; shift 2 ;;
    --count) count="$2"; shift 2 ;;
    *) shift ;;
  esac
done
case "$mode" in
  extract)
    for i in 0 1 2; do
      printf 'jpegdata-%s-%s' "$(basename "$clip")" "$i" > "$out/frame_$i.jpeg"
    done
    ;;
  select)
    n=0
    for f in "$in"/*; do
      [ "$n" -ge "$count" ] && break
      cp "$f" "$out/"
      n=$((n+1))
    done
    ;;
esac
`

func writeFakeFrameproc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frameproc")
	require.NoError(t, os.WriteFile(path, []byte(fakeFrameprocScript), 0o755))
	return path
}

func TestExtractKeyframesEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available on PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("job_user"),
		tcpostgres.WithPassword("job_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// Setup MinIO storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      minioEndpoint,
		AccessKey:     "minioadmin",
		SecretKey:     "minioadmin",
		UseSSL:        false,
		UploadBucket:  "uploads",
		ArchiveBucket: "keyframes",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	// Upload test video to MinIO
	testVideoPath := filepath.Join("..", "testdata", "test.mp4")
	if _, err := os.Stat(testVideoPath); os.IsNotExist(err) {
		t.Skip("test video not found at tests/testdata/test.mp4 - generate it with: ffmpeg -f lavfi -i testsrc=duration=120:size=320x240:rate=1 -c:v libx264 -pix_fmt yuv420p tests/testdata/test.mp4")
	}

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	videoKey := "testuser/test.mp4"
	_, err = minioClient.FPutObject(ctx, "uploads", videoKey, testVideoPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	// Setup RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "framepick.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "keyframes.extract.dlq")

	// Setup DB pool
	dbPool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer dbPool.Close()

	// Setup pipeline with the fake collaborator binary
	log, _ := logger.New("debug")
	frameprocBin := writeFakeFrameproc(t)
	clipsDir := t.TempDir()

	prober := ffmpeg.NewProber("ffmpeg", log)
	cutter, err := ffmpeg.NewCutter("ffmpeg", clipsDir, log)
	require.NoError(t, err)

	pipeline := usecase.NewExtractKeyframesUseCase(
		prober, cutter, ffmpeg.NewValidator(),
		frameproc.NewExtractor(frameprocBin, log),
		frameproc.NewSelector(frameprocBin, log),
		log,
		usecase.ExtractConfig{PoolSize: pool.Fixed(2), MinClipSeconds: 2},
	)

	repo := postgres.NewJobRepository(dbPool)
	archiver := ffmpeg.NewZipCreator()
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewProcessJobUseCase(
		repo, storage, pipeline, archiver,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessJobConfig{
			TempDir:           t.TempDir(),
			MaxRetries:        3,
			DefaultFrameCount: 5,
		},
	)

	// Setup consumer
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "keyframes.extract",
		Exchange:    "framepick.video",
		DLQ:         "keyframes.extract.dlq",
		StatusQueue: "keyframes.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()

	// Give consumer time to start
	time.Sleep(500 * time.Millisecond)

	// Publish extraction message
	jobID := uuid.New()
	videoInfo, _ := os.Stat(testVideoPath)
	jobMsg := entity.KeyframeJobMessage{
		JobID:      jobID,
		UserID:     "testuser",
		VideoKey:   videoKey,
		FrameCount: 5,
		FileSize:   videoInfo.Size(),
		UserEmail:  "test@test.local",
	}
	msgBody, err := json.Marshal(jobMsg)
	require.NoError(t, err)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"framepick.video",
		"keyframes.extract",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msgBody,
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	// Wait for status message
	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	statusMsgs, err := statusCh.Consume("keyframes.status", "", true, false, false, false, nil)
	require.NoError(t, err)

	var statusMsg entity.KeyframeStatusMessage
	select {
	case delivery := <-statusMsgs:
		err = json.Unmarshal(delivery.Body, &statusMsg)
		require.NoError(t, err)
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	// Assert status
	assert.Equal(t, jobID, statusMsg.JobID)
	assert.Equal(t, entity.JobStatusCompleted, statusMsg.Status)
	assert.Equal(t, 5, statusMsg.FrameCount)
	assert.NotEmpty(t, statusMsg.ArchiveKey)

	// Temp clip directory must be empty after the pipeline ran.
	clipEntries, err := os.ReadDir(clipsDir)
	require.NoError(t, err)
	assert.Empty(t, clipEntries, "clips directory should be empty after extraction")

	// Verify archive exists in MinIO and contains the keyframes
	archiveObj, err := minioClient.GetObject(ctx, "keyframes", statusMsg.ArchiveKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)

	tmpZip := filepath.Join(t.TempDir(), "result.zip")
	tmpFile, err := os.Create(tmpZip)
	require.NoError(t, err)
	_, err = tmpFile.ReadFrom(archiveObj)
	require.NoError(t, err)
	tmpFile.Close()

	zipReader, err := zip.OpenReader(tmpZip)
	require.NoError(t, err)
	defer zipReader.Close()

	frameCount := 0
	for _, f := range zipReader.File {
		if strings.HasSuffix(f.Name, ".jpeg") {
			frameCount++
		}
	}
	assert.Equal(t, 5, frameCount, "archive should contain the selected keyframes")

	// Verify job record in database
	var dbStatus string
	var dbFrameCount int
	err = dbPool.QueryRow(ctx,
		"SELECT status, frame_count FROM keyframe_jobs WHERE id=$1", jobID,
	).Scan(&dbStatus, &dbFrameCount)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)
	assert.Equal(t, frameCount, dbFrameCount)

	consumerCancel()

	t.Logf("Test passed: %d keyframes extracted, archive at %s", frameCount, statusMsg.ArchiveKey)
}

func TestMalformedMessageGoesToDLQ(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Start PostgreSQL
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("job_user"),
		tcpostgres.WithPassword("job_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// MinIO (minimal - no video upload needed for this test)
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      minioEndpoint,
		AccessKey:     "minioadmin",
		SecretKey:     "minioadmin",
		UseSSL:        false,
		UploadBucket:  "uploads",
		ArchiveBucket: "keyframes",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	dbPool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer dbPool.Close()

	log, _ := logger.New("debug")
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "framepick.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "keyframes.extract.dlq")

	frameprocBin := writeFakeFrameproc(t)
	prober := ffmpeg.NewProber("ffmpeg", log)
	cutter, err := ffmpeg.NewCutter("ffmpeg", t.TempDir(), log)
	require.NoError(t, err)

	pipeline := usecase.NewExtractKeyframesUseCase(
		prober, cutter, ffmpeg.NewValidator(),
		frameproc.NewExtractor(frameprocBin, log),
		frameproc.NewSelector(frameprocBin, log),
		log,
		usecase.ExtractConfig{PoolSize: pool.Fixed(2), MinClipSeconds: 2},
	)

	repo := postgres.NewJobRepository(dbPool)
	archiver := ffmpeg.NewZipCreator()
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewProcessJobUseCase(
		repo, storage, pipeline, archiver,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessJobConfig{
			TempDir:           t.TempDir(),
			MaxRetries:        3,
			DefaultFrameCount: 5,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "keyframes.extract",
		Exchange:    "framepick.video",
		DLQ:         "keyframes.extract.dlq",
		StatusQueue: "keyframes.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	// Publish malformed message
	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"framepick.video",
		"keyframes.extract",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        []byte(`{invalid json`),
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	// Wait and verify message landed in DLQ
	time.Sleep(2 * time.Second)

	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsg, ok, err := dlqCh.Get("keyframes.extract.dlq", true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))

	consumerCancel()
	t.Log("Test passed: malformed message sent to DLQ")
}
