package collection

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
	"github.com/iamNilotpal/vectorcollection/internal/payload"
	"github.com/iamNilotpal/vectorcollection/internal/segment"
	"github.com/iamNilotpal/vectorcollection/internal/vectorindex"
	vcerrors "github.com/iamNilotpal/vectorcollection/pkg/errors"
)

// Search runs a nearest-neighbor query fanned out across every segment
// concurrently, merging and re-ranking the per-segment top-k into one
// collection-wide top-k — spec.md §6's Search{vector, filter?, params?,
// top}, spec.md §5's "one task per segment fanned out concurrently",
// cancellable via ctx's deadline: each segment's task checks ctx before
// its search starts; a segment search already under way is not
// interrupted.
func (c *Collection) Search(ctx context.Context, vector []float32, filter *payload.Filter, top int, params vectorindex.SearchParams) ([]segment.ScoredPoint, error) {
	if top <= 0 {
		return nil, vcerrors.NewZeroTopKError()
	}
	if len(vector) != int(c.cfg.Params.Size) {
		return nil, vcerrors.NewDimensionMismatchError(len(vector), int(c.cfg.Params.Size))
	}

	results, err := c.fanOutSearch(ctx, vector, filter, top, params)
	if err != nil {
		return nil, err
	}
	return mergeTopK(results, top), nil
}

// Recommend computes a query vector as mean(positive) - mean(negative)
// — both resolved from whichever segment currently owns each id — then
// searches with it, per spec.md §6's Recommend{positive, negative,
// filter?, params?, top}.
func (c *Collection) Recommend(ctx context.Context, positive, negative []uint64, filter *payload.Filter, top int, params vectorindex.SearchParams) ([]segment.ScoredPoint, error) {
	if top <= 0 {
		return nil, vcerrors.NewZeroTopKError()
	}
	if len(positive) == 0 {
		return nil, vcerrors.NewEmptyRecommendPositivesError()
	}

	query, err := c.recommendVector(positive, negative)
	if err != nil {
		return nil, err
	}

	results, err := c.fanOutSearch(ctx, query, filter, top, params)
	if err != nil {
		return nil, err
	}
	return mergeTopK(results, top), nil
}

func (c *Collection) recommendVector(positive, negative []uint64) ([]float32, error) {
	dim := int(c.cfg.Params.Size)
	sum := make([]float32, dim)

	accumulate := func(ids []uint64, sign float32) error {
		for _, id := range ids {
			v, ok := c.holder.GetVector(id)
			if !ok {
				return vcerrors.NewNotFoundError(id)
			}
			if len(v) != dim {
				return vcerrors.NewDimensionMismatchError(len(v), dim)
			}
			for i, x := range v {
				sum[i] += sign * x
			}
		}
		return nil
	}

	if err := accumulate(positive, 1.0/float32(len(positive))); err != nil {
		return nil, err
	}
	if len(negative) > 0 {
		if err := accumulate(negative, -1.0/float32(len(negative))); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func (c *Collection) fanOutSearch(ctx context.Context, vector []float32, filter *payload.Filter, top int, params vectorindex.SearchParams) ([]segment.ScoredPoint, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var merged []segment.ScoredPoint

	c.holder.Iter(func(_ holder.SegmentId, seg *segment.Segment) {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			points, err := seg.Search(vector, filter, top, params)
			if err != nil {
				return err
			}

			mu.Lock()
			merged = append(merged, points...)
			mu.Unlock()
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// mergeTopK sorts candidates by descending score (ascending external id
// as the tie-break, per spec.md §4.5) and truncates to top.
func mergeTopK(candidates []segment.ScoredPoint, top int) []segment.ScoredPoint {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > top {
		candidates = candidates[:top]
	}
	return candidates
}
