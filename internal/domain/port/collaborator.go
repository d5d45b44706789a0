package port

import (
	"context"

	"github.com/framepick/framepick-keyframe-service/internal/domain/entity"
)

// CandidateExtractor is the external frame-quality collaborator. It proposes
// candidate frames for one clip file. The algorithm is not defined here.
type CandidateExtractor interface {
	ExtractCandidates(ctx context.Context, clipPath string) ([]entity.Frame, error)
}

// FrameSelector is the external selection/clustering collaborator. It picks
// the final keyframes from the complete candidate set; the order of the
// returned slice is the presentation order.
type FrameSelector interface {
	SelectBest(ctx context.Context, candidates []entity.Frame, count int) ([]entity.Frame, error)
}
