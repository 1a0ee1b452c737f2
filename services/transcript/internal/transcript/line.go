// Package transcript holds the timed text segment that makes up a lecture
// transcript and its wire encoding.
package transcript

import (
	"errors"
	"fmt"
	"math"
)

// Key kinds, matching the kind names used by the store.
const (
	KindTranscriptLine = "TranscriptLine"
	KindLecture        = "Lecture"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("invalid transcript line")

// ValidationError reports a line field that breaks an invariant.
type ValidationError struct {
	Field  string
	Value  int64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transcript line: %s=%d: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Key mirrors the structured key encoding of the store: a kind plus a numeric id.
type Key struct {
	Kind string
	ID   int64
}

// Line is one timed text segment of a lecture.
// EndMs is always StartMs + DurationMs.
type Line struct {
	ID         int64
	LectureID  int64
	StartMs    int64
	DurationMs int64
	EndMs      int64
	Content    string
}

// New builds a line that has not been stored yet (ID 0) and derives EndMs.
func New(lectureID int64, content string, startMs, durationMs int64) (Line, error) {
	if lectureID <= 0 {
		return Line{}, &ValidationError{Field: "lectureId", Value: lectureID, Reason: "must be positive"}
	}
	if startMs < 0 {
		return Line{}, &ValidationError{Field: "startTimestampMs", Value: startMs, Reason: "must not be negative"}
	}
	if durationMs < 0 {
		return Line{}, &ValidationError{Field: "durationMs", Value: durationMs, Reason: "must not be negative"}
	}
	if durationMs > math.MaxInt64-startMs {
		return Line{}, &ValidationError{Field: "endTimestampMs", Value: durationMs, Reason: "startTimestampMs + durationMs overflows"}
	}
	return Line{
		LectureID:  lectureID,
		StartMs:    startMs,
		DurationMs: durationMs,
		EndMs:      startMs + durationMs,
		Content:    content,
	}, nil
}

// Validate checks the invariants of a line built outside New, e.g. one read
// back from a store or decoded from JSON.
func (l Line) Validate() error {
	if l.ID < 0 {
		return &ValidationError{Field: "id", Value: l.ID, Reason: "must not be negative"}
	}
	if _, err := New(l.LectureID, l.Content, l.StartMs, l.DurationMs); err != nil {
		return err
	}
	if l.EndMs != l.StartMs+l.DurationMs {
		return &ValidationError{Field: "endTimestampMs", Value: l.EndMs, Reason: "must equal startTimestampMs + durationMs"}
	}
	return nil
}

// Equal reports whether every field of l and o matches.
func (l Line) Equal(o Line) bool { return l == o }

// TranscriptKey returns the store key of the line.
func (l Line) TranscriptKey() Key { return Key{Kind: KindTranscriptLine, ID: l.ID} }

// LectureKey returns the key of the owning lecture.
func (l Line) LectureKey() Key { return Key{Kind: KindLecture, ID: l.LectureID} }
