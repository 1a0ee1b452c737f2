package transcript

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const shortVideoJSON = `[{"transcriptKey":{"kind":"TranscriptLine","id":1},"lectureKey":{"kind":"Lecture","id":123},"startTimestampMs":400,"durationMs":1000,"endTimestampMs":1400,"content":" "},` +
	`{"transcriptKey":{"kind":"TranscriptLine","id":2},"lectureKey":{"kind":"Lecture","id":123},"startTimestampMs":2280,"durationMs":1000,"endTimestampMs":3280,"content":"Hi"},` +
	`{"transcriptKey":{"kind":"TranscriptLine","id":3},"lectureKey":{"kind":"Lecture","id":123},"startTimestampMs":5040,"durationMs":1600,"endTimestampMs":6640,"content":"Okay"}]`

func mustLine(t *testing.T, id, lectureID int64, content string, start, dur int64) Line {
	t.Helper()
	l, err := New(lectureID, content, start, dur)
	if err != nil {
		t.Fatalf("new line: %v", err)
	}
	l.ID = id
	return l
}

func TestParseLines_ShortVideo(t *testing.T) {
	got, err := ParseLines([]byte(shortVideoJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Lines{
		mustLine(t, 1, 123, " ", 400, 1000),
		mustLine(t, 2, 123, "Hi", 2280, 1000),
		mustLine(t, 3, 123, "Okay", 5040, 1600),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLines_EscapedContent(t *testing.T) {
	in := `[{"transcriptKey":{"kind":"TranscriptLine","id":4},"lectureKey":{"kind":"Lecture","id":123},` +
		`"startTimestampMs":12700,"durationMs":4300,"endTimestampMs":17000,"content":"and that's,\nthat's cool."}]`
	got, err := ParseLines([]byte(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 line, got %d", len(got))
	}
	if got[0].Content != "and that's,\nthat's cool." {
		t.Fatalf("unexpected content %q", got[0].Content)
	}
}

func TestRoundTrip(t *testing.T) {
	lines := Lines{
		mustLine(t, 1, 123, "All right, so here we are\nin front of the elephants,", 1300, 3100),
		mustLine(t, 2, 123, `she said "trunks" \ twice`, 4400, 4766),
		mustLine(t, 3, 123, "", 9166, 3534),
		mustLine(t, 4, 123, "<b>tags</b> & ünïcödé\ttab", 12700, 4300),
	}
	data, err := lines.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseLines(data)
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, data)
	}
	if diff := cmp.Diff(lines, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_EncodingJSONInterop(t *testing.T) {
	l := mustLine(t, 9, 345, "line one\nline two", 0, 10)
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Line
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(l) {
		t.Fatalf("expected %+v, got %+v", l, back)
	}
}

func TestMarshal_Shape(t *testing.T) {
	data, err := mustLine(t, 2, 123, "Hi", 2280, 1000).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("not valid json: %v", err)
	}
	for _, k := range []string{"transcriptKey", "lectureKey", "startTimestampMs", "durationMs", "endTimestampMs", "content"} {
		if _, ok := generic[k]; !ok {
			t.Fatalf("missing field %q in %s", k, data)
		}
	}
	lk, _ := generic["lectureKey"].(map[string]any)
	if lk["id"] != float64(123) || lk["kind"] != KindLecture {
		t.Fatalf("unexpected lectureKey %v", lk)
	}
	if generic["endTimestampMs"] != float64(3280) {
		t.Fatalf("unexpected endTimestampMs %v", generic["endTimestampMs"])
	}
}

func TestMarshal_NilIsEmptyArray(t *testing.T) {
	var ls Lines
	data, err := ls.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
}

func TestParseLines_DerivesMissingEnd(t *testing.T) {
	got, err := ParseLines([]byte(`[{"lectureKey":{"id":5},"startTimestampMs":10,"durationMs":15,"content":"x","extra":{"a":[1,2]}}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0].EndMs != 25 {
		t.Fatalf("expected derived end 25, got %d", got[0].EndMs)
	}
}

func TestParseLines_BareKeys(t *testing.T) {
	got, err := ParseLines([]byte(`[{"transcriptKey":3,"lectureKey":5,"startTimestampMs":1,"durationMs":1,"content":"x"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0].ID != 3 || got[0].LectureID != 5 {
		t.Fatalf("unexpected keys %+v", got[0])
	}
}

func TestParseLines_Rejects(t *testing.T) {
	cases := map[string]string{
		"end mismatch":   `[{"lectureKey":{"id":5},"startTimestampMs":10,"durationMs":15,"endTimestampMs":26,"content":"x"}]`,
		"negative start": `[{"lectureKey":{"id":5},"startTimestampMs":-1,"durationMs":15,"content":"x"}]`,
		"no lecture":     `[{"startTimestampMs":1,"durationMs":15,"content":"x"}]`,
		"wrong kind":     `[{"lectureKey":{"kind":"TranscriptLine","id":5},"startTimestampMs":1,"durationMs":1}]`,
		"end overflow":   `[{"lectureKey":{"id":7},"startTimestampMs":9223372036854775000,"durationMs":1000,"content":"x"}]`,
	}
	for name, in := range cases {
		if _, err := ParseLines([]byte(in)); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestParseLines_Malformed(t *testing.T) {
	for _, in := range []string{`[{"content":`, `{"content":"x"}`, `[] trailing`} {
		if _, err := ParseLines([]byte(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParseLines_EmptyArray(t *testing.T) {
	got, err := ParseLines([]byte(" [ ] "))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
