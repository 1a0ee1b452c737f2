// Package ingest writes parsed captions into the transcript store.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/lecture-platform/services/transcript/internal/captions"
	"github.com/example/lecture-platform/services/transcript/internal/store"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(s store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, log: log}
}

// Ingest validates every cue before writing any of them, then creates one
// line per cue. On a store failure the lines written so far stay written and
// are returned with the error.
func (s *Service) Ingest(ctx context.Context, lectureID int64, cues []captions.Cue) ([]transcript.Line, error) {
	pending := make([]transcript.Line, 0, len(cues))
	for i, c := range cues {
		l, err := transcript.New(lectureID, c.Content, c.StartMs, c.DurationMs)
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", i, err)
		}
		pending = append(pending, l)
	}

	created := make([]transcript.Line, 0, len(pending))
	for _, l := range pending {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		rec, err := store.CreateRecord(ctx, s.store, l.LectureID, l.Content, l.StartMs, l.DurationMs, l.EndMs)
		if err != nil {
			s.log.Error("ingest: create failed",
				zap.Int64("lecture_id", lectureID),
				zap.Int("written", len(created)),
				zap.Int("total", len(pending)),
				zap.Error(err))
			return created, err
		}
		l.ID = rec.ID
		created = append(created, l)
	}

	s.log.Info("ingest: lines created", zap.Int64("lecture_id", lectureID), zap.Int("count", len(created)))
	return created, nil
}

// IngestPayload decodes data as format and ingests the result.
func (s *Service) IngestPayload(ctx context.Context, lectureID int64, format Format, data []byte) ([]transcript.Line, error) {
	cues, err := Decode(format, lectureID, data)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, lectureID, cues)
}
