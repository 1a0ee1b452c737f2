// Package store persists transcript lines as records keyed by a store-assigned
// id with a back-reference to the owning lecture.
//
// Every backend answers the same equality-filtered, paginated query; none of
// them promises an order to the caller.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

// Names shared by the write and read paths of every backend.
const (
	// Kind is the record kind of a transcript line.
	Kind = transcript.KindTranscriptLine
	// Table is the table/keyspace-table name used by the SQL and CQL backends.
	Table = "transcript_lines"
	// FieldLecture is the lecture back-reference field.
	FieldLecture = "lecture_id"
)

// DefaultLimit is the page size used when a query does not set one.
const DefaultLimit = 100

// MaxLimit caps a single page.
const MaxLimit = 1000

var (
	ErrUnsupportedQuery = errors.New("store: unsupported query")
	ErrInvalidCursor    = errors.New("store: invalid cursor")
	ErrClosed           = errors.New("store: closed")
)

// Record is the persisted form of a transcript line.
type Record struct {
	ID         int64
	LectureID  int64
	StartMs    int64
	DurationMs int64
	EndMs      int64
	Content    string
}

// Filter selects records whose Field equals Value.
type Filter struct {
	Field string
	Value int64
}

// Query asks for one page of records of Kind matching Filter.
// An empty Cursor starts from the beginning.
type Query struct {
	Kind   string
	Filter Filter
	Limit  int
	Cursor string
}

// Page is one page of query results. An empty Next means there are no more pages.
type Page struct {
	Records []Record
	Next    string
}

// Store is the document/key-value store contract.
type Store interface {
	// Create persists rec under a fresh, globally unique id and returns it.
	Create(ctx context.Context, rec Record) (Record, error)
	// Query returns one page of records matching q.
	Query(ctx context.Context, q Query) (Page, error)
	Close() error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRecord maps line fields onto a record that has not been persisted yet.
func NewRecord(lectureID int64, content string, startMs, durationMs, endMs int64) Record {
	return Record{
		LectureID:  lectureID,
		StartMs:    startMs,
		DurationMs: durationMs,
		EndMs:      endMs,
		Content:    content,
	}
}

// CreateRecord validates the fields and persists a new record through s.
func CreateRecord(ctx context.Context, s Store, lectureID int64, content string, startMs, durationMs, endMs int64) (Record, error) {
	rec := NewRecord(lectureID, content, startMs, durationMs, endMs)
	if _, err := rec.Line(); err != nil {
		return Record{}, err
	}
	out, err := s.Create(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", Kind, err)
	}
	return out, nil
}

// FromLine maps a line onto its record.
func FromLine(l transcript.Line) Record {
	return Record{
		ID:         l.ID,
		LectureID:  l.LectureID,
		StartMs:    l.StartMs,
		DurationMs: l.DurationMs,
		EndMs:      l.EndMs,
		Content:    l.Content,
	}
}

// Line maps the record back to a line, enforcing the line invariants.
func (r Record) Line() (transcript.Line, error) {
	l := transcript.Line{
		ID:         r.ID,
		LectureID:  r.LectureID,
		StartMs:    r.StartMs,
		DurationMs: r.DurationMs,
		EndMs:      r.EndMs,
		Content:    r.Content,
	}
	if err := l.Validate(); err != nil {
		return transcript.Line{}, err
	}
	return l, nil
}

// LectureQuery builds the query for every record of one lecture.
func LectureQuery(lectureID int64, limit int, cursor string) Query {
	return Query{
		Kind:   Kind,
		Filter: Filter{Field: FieldLecture, Value: lectureID},
		Limit:  limit,
		Cursor: cursor,
	}
}

// lectureFilter checks that q is a query this package knows how to answer and
// returns the lecture id and effective page size.
func lectureFilter(q Query) (int64, int, error) {
	if q.Kind != Kind {
		return 0, 0, fmt.Errorf("%w: kind %q", ErrUnsupportedQuery, q.Kind)
	}
	if q.Filter.Field != FieldLecture {
		return 0, 0, fmt.Errorf("%w: filter on %q", ErrUnsupportedQuery, q.Filter.Field)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return q.Filter.Value, limit, nil
}

// Keyset cursors carry the last id returned.

func encodeIDCursor(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func decodeIDCursor(c string) (int64, error) {
	if c == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, raw)
	}
	return id, nil
}

// nextCursor trims a page fetched with limit+1 rows and returns the cursor for
// the following page, if any.
func nextCursor(recs []Record, limit int) ([]Record, string) {
	if len(recs) <= limit {
		return recs, ""
	}
	recs = recs[:limit]
	return recs, encodeIDCursor(recs[len(recs)-1].ID)
}
