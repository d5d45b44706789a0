package entity

import (
	"fmt"

	"github.com/framepick/framepick-keyframe-service/internal/domain/errs"
)

// Window is a contiguous [Start,End) time sub-range of a source video,
// in seconds.
type Window struct {
	Start float64
	End   float64
}

func (w Window) Duration() float64 { return w.End - w.Start }

// StartMs and EndMs are the offsets rounded to whole milliseconds, used in
// clip file names.
func (w Window) StartMs() int64 { return int64(w.Start*1000 + 0.5) }
func (w Window) EndMs() int64   { return int64(w.End*1000 + 0.5) }

func (w Window) Validate(totalDuration float64) error {
	if w.Start < 0 || w.Start >= w.End || w.End > totalDuration {
		return fmt.Errorf("%w: window [%.2f,%.2f) outside [0,%.2f)",
			errs.ErrInvalidInput, w.Start, w.End, totalDuration)
	}
	return nil
}

// Chunk is a window materialized as a temporary clip file. ClipPath is
// exclusively owned by the clip lifecycle of one extraction call.
type Chunk struct {
	SourcePath string
	Window     Window
	ClipPath   string
}
