package transcript

import (
	"fmt"

	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// Wire field names.
const (
	fieldTranscriptKey = "transcriptKey"
	fieldLectureKey    = "lectureKey"
	fieldStart         = "startTimestampMs"
	fieldDuration      = "durationMs"
	fieldEnd           = "endTimestampMs"
	fieldContent       = "content"
	fieldKeyKind       = "kind"
	fieldKeyID         = "id"
)

// Lines is an ordered sequence of lines. It encodes as a JSON array; nil
// encodes as [].
type Lines []Line

// MarshalJSON supports json.Marshaler interface
func (l Line) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	encodeLine(&w, l)
	return w.BuildBytes()
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (l Line) MarshalEasyJSON(w *jwriter.Writer) { encodeLine(w, l) }

// UnmarshalJSON supports json.Unmarshaler interface
func (l *Line) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	decodeLine(&r, l)
	return r.Error()
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (l *Line) UnmarshalEasyJSON(r *jlexer.Lexer) { decodeLine(r, l) }

// MarshalJSON supports json.Marshaler interface
func (ls Lines) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	ls.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (ls Lines) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('[')
	for i, l := range ls {
		if i > 0 {
			w.RawByte(',')
		}
		encodeLine(w, l)
	}
	w.RawByte(']')
}

// UnmarshalJSON supports json.Unmarshaler interface
func (ls *Lines) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	ls.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (ls *Lines) UnmarshalEasyJSON(r *jlexer.Lexer) {
	isTopLevel := r.IsStart()
	if r.IsNull() {
		if isTopLevel {
			r.Consumed()
		}
		r.Skip()
		*ls = nil
		return
	}
	out := make(Lines, 0, 8)
	r.Delim('[')
	for !r.IsDelim(']') {
		var l Line
		decodeLine(r, &l)
		out = append(out, l)
		r.WantComma()
	}
	r.Delim(']')
	if isTopLevel {
		r.Consumed()
	}
	if r.Ok() {
		*ls = out
	}
}

// ParseLines decodes a JSON array of lines, validating each element.
func ParseLines(data []byte) (Lines, error) {
	var ls Lines
	if err := ls.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return ls, nil
}

func encodeKey(w *jwriter.Writer, k Key) {
	w.RawString(`{"` + fieldKeyKind + `":`)
	w.String(k.Kind)
	w.RawString(`,"` + fieldKeyID + `":`)
	w.Int64(k.ID)
	w.RawByte('}')
}

func encodeLine(w *jwriter.Writer, l Line) {
	w.RawString(`{"` + fieldTranscriptKey + `":`)
	encodeKey(w, l.TranscriptKey())
	w.RawString(`,"` + fieldLectureKey + `":`)
	encodeKey(w, l.LectureKey())
	w.RawString(`,"` + fieldStart + `":`)
	w.Int64(l.StartMs)
	w.RawString(`,"` + fieldDuration + `":`)
	w.Int64(l.DurationMs)
	w.RawString(`,"` + fieldEnd + `":`)
	w.Int64(l.EndMs)
	w.RawString(`,"` + fieldContent + `":`)
	w.String(l.Content)
	w.RawByte('}')
}

// decodeKey accepts the structured {"kind":..,"id":..} form as well as a bare id.
func decodeKey(r *jlexer.Lexer, kind string) int64 {
	if !r.IsDelim('{') {
		return r.Int64()
	}
	var id int64
	r.Delim('{')
	for !r.IsDelim('}') {
		key := r.UnsafeFieldName(false)
		r.WantColon()
		if r.IsNull() {
			r.Skip()
			r.WantComma()
			continue
		}
		switch key {
		case fieldKeyID:
			id = r.Int64()
		case fieldKeyKind:
			if got := r.String(); got != kind {
				r.AddError(fmt.Errorf("%w: key kind %q, want %q", ErrValidation, got, kind))
			}
		default:
			r.SkipRecursive()
		}
		r.WantComma()
	}
	r.Delim('}')
	return id
}

func decodeLine(r *jlexer.Lexer, l *Line) {
	isTopLevel := r.IsStart()
	if r.IsNull() {
		if isTopLevel {
			r.Consumed()
		}
		r.Skip()
		return
	}
	var hasEnd bool
	r.Delim('{')
	for !r.IsDelim('}') {
		key := r.UnsafeFieldName(false)
		r.WantColon()
		if r.IsNull() {
			r.Skip()
			r.WantComma()
			continue
		}
		switch key {
		case fieldTranscriptKey:
			l.ID = decodeKey(r, KindTranscriptLine)
		case fieldLectureKey:
			l.LectureID = decodeKey(r, KindLecture)
		case fieldStart:
			l.StartMs = r.Int64()
		case fieldDuration:
			l.DurationMs = r.Int64()
		case fieldEnd:
			l.EndMs = r.Int64()
			hasEnd = true
		case fieldContent:
			l.Content = r.String()
		default:
			r.SkipRecursive()
		}
		r.WantComma()
	}
	r.Delim('}')
	if isTopLevel {
		r.Consumed()
	}
	if !r.Ok() {
		return
	}
	if !hasEnd {
		l.EndMs = l.StartMs + l.DurationMs
	}
	if err := l.Validate(); err != nil {
		r.AddError(err)
	}
}
