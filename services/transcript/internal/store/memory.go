package store

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a development-only in-memory implementation.
type InMemoryStore struct {
	mu        sync.RWMutex
	closed    bool
	lastID    int64
	records   map[int64]Record   // id -> record
	byLecture map[int64][]int64 // lecture_id -> ids in insertion order
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[int64]Record),
		byLecture: make(map[int64][]int64),
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Record{}, ErrClosed
	}
	s.lastID++
	rec.ID = s.lastID
	s.records[rec.ID] = rec
	s.byLecture[rec.LectureID] = append(s.byLecture[rec.LectureID], rec.ID)
	return rec, nil
}

func (s *InMemoryStore) Query(ctx context.Context, q Query) (Page, error) {
	lectureID, limit, err := lectureFilter(q)
	if err != nil {
		return Page{}, err
	}
	after, err := decodeIDCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Page{}, ErrClosed
	}

	// Ids are handed out in increasing order, so the per-lecture slice is
	// already sorted; search for the cursor position.
	ids := s.byLecture[lectureID]
	start := sort.Search(len(ids), func(i int) bool { return ids[i] > after })

	out := make([]Record, 0, min(limit+1, len(ids)-start))
	for _, id := range ids[start:] {
		out = append(out, s.records[id])
		if len(out) > limit {
			break
		}
	}
	recs, next := nextCursor(out, limit)
	return Page{Records: recs, Next: next}, nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
