package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
	"go.uber.org/zap"
)

// Prober recovers a video's total duration by running ffmpeg with a null
// output and scraping its diagnostic stream. The scraping lives in
// ParseDurationOutput so it can be swapped for a structured probe without
// touching callers.
type Prober struct {
	binary string
	logger *zap.Logger
}

func NewProber(binary string, logger *zap.Logger) *Prober {
	return &Prober{binary: binary, logger: logger}
}

var durationRe = regexp.MustCompile(`([0-9][0-9]:[0-9][0-9]:[0-9][0-9]\.[0-9][0-9])`)

// Probe returns the duration of the video at path in seconds.
func (p *Prober) Probe(ctx context.Context, path string) (float64, error) {
	// -f null forces full diagnostics on stderr without producing media.
	cmd := exec.CommandContext(ctx, p.binary, "-i", path, "-f", "null", "-")
	var stderr strings.Builder
	cmd.Stderr = &stderr

	// ffmpeg exits non-zero for missing files; the diagnostics still carry
	// the reason, so the exit code alone is not treated as fatal here.
	runErr := cmd.Run()
	infos := stderr.String()
	if infos == "" && runErr != nil {
		return 0, &errs.ExternalToolError{Tool: "ffmpeg", Path: path, Err: runErr}
	}

	seconds, err := ParseDurationOutput(infos)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	p.logger.Debug("probed video duration",
		zap.String("video", path),
		zap.Float64("seconds", seconds),
	)
	return seconds, nil
}

// ParseDurationOutput extracts the duration in seconds from ffmpeg's
// diagnostic text. The tool may emit several duration-like lines; the last
// "Duration:" line is authoritative. A trailing "No such file or directory"
// line fails the parse before any numeric work.
func ParseDurationOutput(infos string) (float64, error) {
	lines := strings.Split(strings.TrimRight(infos, "\n"), "\n")
	if len(lines) > 0 && strings.Contains(lines[len(lines)-1], "No such file or directory") {
		return 0, errs.ErrNotFound
	}

	var durationLine string
	for _, line := range lines {
		if strings.Contains(line, "Duration:") {
			durationLine = line
		}
	}
	if durationLine == "" {
		return 0, fmt.Errorf("%w: no duration line in diagnostics", errs.ErrUnparseableMetadata)
	}

	match := durationRe.FindString(durationLine)
	if match == "" {
		return 0, fmt.Errorf("%w: no timestamp in %q", errs.ErrUnparseableMetadata, durationLine)
	}
	return timestampToSeconds(match)
}

// timestampToSeconds converts "HH:MM:SS.cc" to seconds.
func timestampToSeconds(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: malformed timestamp %q", errs.ErrUnparseableMetadata, ts)
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("%w: malformed timestamp %q", errs.ErrUnparseableMetadata, ts)
	}
	return hours*3600 + minutes*60 + seconds, nil
}
