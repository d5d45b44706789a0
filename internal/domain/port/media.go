package port

import (
	"context"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
)

// DurationProber recovers the total duration of a video in seconds from the
// external media tool's diagnostics.
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// ClipCutter materializes a window of the source video as a temporary clip
// file and returns its path.
type ClipCutter interface {
	Cut(ctx context.Context, sourcePath string, window entity.Window, token string) (string, error)
}

// VideoValidator reports whether a path names a playable video.
type VideoValidator interface {
	IsValidVideo(path string) bool
}

// VideoCompressor runs one external compression invocation.
type VideoCompressor interface {
	Compress(ctx context.Context, job entity.CompressionJob) (bool, error)
}
