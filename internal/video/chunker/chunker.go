package chunker

import (
	"fmt"
	"runtime"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
)

// BreakPointFloor is the minimum target duration of one window in seconds.
// Windows shorter than this amortize per-clip external-process overhead
// poorly.
const BreakPointFloor = 25.0

// Plan computes a sequence of contiguous, non-overlapping [start,end)
// windows covering [0, totalDuration).
//
// The break point is max(BreakPointFloor, totalDuration/workerCount): at
// least 25 seconds per window unless the per-worker share of the video is
// larger. If the remainder past a boundary would be shorter than
// minChunkDuration, the current window is extended to the full duration
// instead, so a pathologically short tail never reaches the extraction
// collaborator.
//
// workerCount <= 0 falls back to the machine's CPU count.
func Plan(totalDuration float64, workerCount int, minChunkDuration float64) ([]entity.Window, error) {
	if totalDuration < 0 {
		return nil, fmt.Errorf("%w: negative duration %.2f", errs.ErrInvalidInput, totalDuration)
	}
	if totalDuration == 0 {
		return nil, nil
	}
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	breakPoint := totalDuration / float64(workerCount)
	if breakPoint < BreakPointFloor {
		breakPoint = BreakPointFloor
	}

	var windows []entity.Window
	for start := 0.0; start < totalDuration; {
		end := start + breakPoint
		if end > totalDuration || end+minChunkDuration > totalDuration {
			end = totalDuration
		}
		windows = append(windows, entity.Window{Start: start, End: end})
		start = end
	}
	return windows, nil
}

// Validate checks that windows are individually well-formed, contiguous and
// exactly cover [0, totalDuration).
func Validate(windows []entity.Window, totalDuration float64) error {
	if len(windows) == 0 {
		return fmt.Errorf("%w: empty window plan", errs.ErrInvalidInput)
	}
	for i, w := range windows {
		if err := w.Validate(totalDuration); err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
	}
	if windows[0].Start != 0 {
		return fmt.Errorf("%w: plan starts at %.2f, not 0", errs.ErrInvalidInput, windows[0].Start)
	}
	if windows[len(windows)-1].End != totalDuration {
		return fmt.Errorf("%w: plan ends at %.2f, not %.2f",
			errs.ErrInvalidInput, windows[len(windows)-1].End, totalDuration)
	}
	for i := 0; i < len(windows)-1; i++ {
		if windows[i].End != windows[i+1].Start {
			return fmt.Errorf("%w: gap or overlap between windows %d and %d",
				errs.ErrInvalidInput, i, i+1)
		}
	}
	return nil
}
