// Package resolver answers "every transcript line of lecture X" on top of a
// paginated store.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/example/lecture-platform/services/transcript/internal/store"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

// DefaultPageSize is the page size requested from the store.
const DefaultPageSize = 100

// ErrStoreUnavailable wraps every failure that originates in the store.
var ErrStoreUnavailable = errors.New("transcript store unavailable")

// Option configures a Resolver.
type Option func(*Resolver)

// WithPageSize overrides DefaultPageSize. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// Resolver is safe for concurrent use; it holds no per-request state.
type Resolver struct {
	store    store.Store
	pageSize int
	log      *zap.Logger
}

func New(s store.Store, opts ...Option) *Resolver {
	r := &Resolver{store: s, pageSize: DefaultPageSize, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// LinesForLecture returns every line of lectureID ordered by start time,
// ties broken by id. A lecture with no lines yields an empty, non-nil slice.
func (r *Resolver) LinesForLecture(ctx context.Context, lectureID int64) ([]transcript.Line, error) {
	lines := make([]transcript.Line, 0)
	seen := make(map[string]struct{})
	cursor := ""

	for {
		page, err := r.store.Query(ctx, store.LectureQuery(lectureID, r.pageSize, cursor))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.log.Warn("transcript query failed", zap.Int64("lecture_id", lectureID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}

		for _, rec := range page.Records {
			if rec.LectureID != lectureID {
				return nil, fmt.Errorf("%w: record %d belongs to lecture %d, queried %d",
					ErrStoreUnavailable, rec.ID, rec.LectureID, lectureID)
			}
			l, err := rec.Line()
			if err != nil {
				return nil, fmt.Errorf("%w: record %d: %w", ErrStoreUnavailable, rec.ID, err)
			}
			lines = append(lines, l)
		}

		if page.Next == "" {
			break
		}
		if _, dup := seen[page.Next]; dup {
			return nil, fmt.Errorf("%w: cursor repeated", ErrStoreUnavailable)
		}
		seen[page.Next] = struct{}{}
		cursor = page.Next
	}

	Sort(lines)
	return lines, nil
}

// Sort orders lines by start time, ties by id.
func Sort(lines []transcript.Line) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].StartMs != lines[j].StartMs {
			return lines[i].StartMs < lines[j].StartMs
		}
		return lines[i].ID < lines[j].ID
	})
}
