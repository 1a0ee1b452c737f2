// Package captions turns caption files into timed cues.
package captions

import "errors"

// Cue is one timed caption segment.
type Cue struct {
	StartMs    int64
	DurationMs int64
	Content    string
}

// ErrMalformed is returned for input that is not a valid caption file.
var ErrMalformed = errors.New("captions: malformed input")
