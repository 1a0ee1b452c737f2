package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/example/lecture-platform/services/transcript/internal/captions"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

// Format names a caption payload encoding.
type Format string

const (
	FormatSRT       Format = "srt"
	FormatTimedText Format = "timedtext"
	FormatJSON      Format = "json"
)

var (
	ErrUnknownFormat   = errors.New("ingest: unknown format")
	ErrLectureMismatch = errors.New("ingest: line belongs to another lecture")
)

// ParseFormat accepts the names used by the CLI and job payloads.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSRT, FormatTimedText, FormatJSON:
		return f, nil
	case "xml":
		return FormatTimedText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromContentType maps an HTTP Content-Type onto a Format.
func FormatFromContentType(ct string) (Format, error) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q", ErrUnknownFormat, ct)
	}
	switch mt {
	case "application/x-subrip", "text/srt":
		return FormatSRT, nil
	case "text/xml", "application/xml":
		return FormatTimedText, nil
	case "application/json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: content type %q", ErrUnknownFormat, mt)
	}
}

// Decode parses data as format. JSON payloads are arrays of transcript lines;
// their ids are ignored and their lecture must be lectureID.
func Decode(format Format, lectureID int64, data []byte) ([]captions.Cue, error) {
	switch format {
	case FormatSRT:
		return captions.ParseSRT(bytes.NewReader(data))
	case FormatTimedText:
		return captions.ParseTimedText(bytes.NewReader(data))
	case FormatJSON:
		lines, err := transcript.ParseLines(data)
		if err != nil {
			return nil, err
		}
		cues := make([]captions.Cue, 0, len(lines))
		for _, l := range lines {
			if l.LectureID != lectureID {
				return nil, fmt.Errorf("%w: %d", ErrLectureMismatch, l.LectureID)
			}
			cues = append(cues, captions.Cue{StartMs: l.StartMs, DurationMs: l.DurationMs, Content: l.Content})
		}
		return cues, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
