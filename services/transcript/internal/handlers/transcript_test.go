package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/lecture-platform/internal/platform/api"
	"github.com/example/lecture-platform/internal/platform/auth"
	"github.com/example/lecture-platform/services/transcript/internal/ingest"
	"github.com/example/lecture-platform/services/transcript/internal/resolver"
	"github.com/example/lecture-platform/services/transcript/internal/store"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

// setupReq builds a request with an optional body, content type and user_id in context.
func setupReq(method, url, body, contentType, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

func seed(t *testing.T, s store.Store, lectureID int64, content string, start, dur int64) transcript.Line {
	t.Helper()
	rec, err := store.CreateRecord(context.Background(), s, lectureID, content, start, dur, start+dur)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	l, err := rec.Line()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return l
}

func decodeLines(t *testing.T, rr *httptest.ResponseRecorder) transcript.Lines {
	t.Helper()
	lines, err := transcript.ParseLines(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return lines
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var body api.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body.Error
}

// countingResolver records calls and delegates to an optional inner resolver.
type countingResolver struct {
	calls int
	inner LineResolver
	err   error
}

func (c *countingResolver) LinesForLecture(ctx context.Context, id int64) ([]transcript.Line, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.LinesForLecture(ctx, id)
}

type recordedEvents struct {
	viewed   []int64
	ingested []string
}

func (e *recordedEvents) TranscriptViewed(lectureID int64, _ int) {
	e.viewed = append(e.viewed, lectureID)
}

func (e *recordedEvents) TranscriptIngested(userID string, _ int64, _ int) {
	e.ingested = append(e.ingested, userID)
}

func TestGetTranscript_EmptyLecture(t *testing.T) {
	s := store.NewInMemoryStore()
	seed(t, s, 345, "elsewhere", 0, 10)
	handler := GetTranscript(resolver.New(s), Options{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, setupReq(http.MethodGet, "/transcript?lectureId=999", "", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	if rr.Body.String() != "[]" {
		t.Fatalf("expected [], got %q", rr.Body.String())
	}
}

func TestGetTranscript_TwoLectures(t *testing.T) {
	s := store.NewInMemoryStore()
	seed(t, s, 345, "The quick brown fox", 0, 2100)
	seed(t, s, 345, "jumps over", 2100, 1000)
	seed(t, s, 345, "the lazy dog.", 3100, 1900)

	var want transcript.Lines
	for i, c := range []string{
		"Lorem ipsum dolor sit amet,",
		"consectetur adipiscing elit,\nsed do eiusmod",
		"tempor incididunt ut labore",
		"et dolore magna aliqua. Ut enim",
		"ad minim veniam, quis nostrud 'exercitation'",
	} {
		want = append(want, seed(t, s, 123, c, int64(i)*2000, 2000))
	}

	events := &recordedEvents{}
	handler := GetTranscript(resolver.New(s, resolver.WithPageSize(2)), Options{Events: events})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, setupReq(http.MethodGet, "/transcript?lectureId=123", "", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeLines(t, rr)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	for _, l := range got {
		if l.LectureID != 123 {
			t.Fatalf("line %d belongs to lecture %d", l.ID, l.LectureID)
		}
	}
	if len(events.viewed) != 1 || events.viewed[0] != 123 {
		t.Fatalf("expected one viewed event for 123, got %v", events.viewed)
	}
}

func TestGetTranscript_ResponseOrderIsResolverOrder(t *testing.T) {
	s := store.NewInMemoryStore()
	third := seed(t, s, 5, "c", 300, 10)
	first := seed(t, s, 5, "a", 100, 10)
	second := seed(t, s, 5, "b", 200, 10)

	rr := httptest.NewRecorder()
	GetTranscript(resolver.New(s), Options{}).ServeHTTP(rr, setupReq(http.MethodGet, "/transcript?lectureId=5", "", "", ""))

	got := decodeLines(t, rr)
	want := transcript.Lines{first, second, third}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestGetTranscript_MissingLectureID(t *testing.T) {
	for _, url := range []string{"/transcript", "/transcript?lectureId=", "/transcript?lectureId=%20"} {
		res := &countingResolver{}
		rr := httptest.NewRecorder()
		GetTranscript(res, Options{}).ServeHTTP(rr, setupReq(http.MethodGet, url, "", "", ""))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", url, rr.Code)
		}
		if code := decodeError(t, rr).Code; code != "MISSING_LECTURE_ID" {
			t.Fatalf("%s: expected MISSING_LECTURE_ID, got %q", url, code)
		}
		if res.calls != 0 {
			t.Fatalf("%s: store accessed %d times", url, res.calls)
		}
	}
}

func TestGetTranscript_InvalidLectureID(t *testing.T) {
	for _, v := range []string{"abc", "0", "-4", "1.5", "99999999999999999999"} {
		res := &countingResolver{}
		rr := httptest.NewRecorder()
		GetTranscript(res, Options{}).ServeHTTP(rr, setupReq(http.MethodGet, "/transcript?lectureId="+v, "", "", ""))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", v, rr.Code)
		}
		if code := decodeError(t, rr).Code; code != "INVALID_LECTURE_ID" {
			t.Fatalf("%q: expected INVALID_LECTURE_ID, got %q", v, code)
		}
		if res.calls != 0 {
			t.Fatalf("%q: store accessed", v)
		}
	}
}

func TestGetTranscript_StoreUnavailable(t *testing.T) {
	res := &countingResolver{err: errors.Join(resolver.ErrStoreUnavailable, errors.New("dial tcp: refused"))}
	rr := httptest.NewRecorder()
	GetTranscript(res, Options{}).ServeHTTP(rr, setupReq(http.MethodGet, "/transcript?lectureId=1", "", "", ""))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if code := decodeError(t, rr).Code; code != "STORE_UNAVAILABLE" {
		t.Fatalf("expected STORE_UNAVAILABLE, got %q", code)
	}
}

func TestGetTranscript_ClosedStore(t *testing.T) {
	s := store.NewInMemoryStore()
	_ = s.Close()

	rr := httptest.NewRecorder()
	GetTranscript(resolver.New(s), Options{}).ServeHTTP(rr, setupReq(http.MethodGet, "/transcript?lectureId=1", "", "", ""))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestGetTranscript_CancelledRequestWritesNothing(t *testing.T) {
	s := store.NewInMemoryStore()
	seed(t, s, 1, "x", 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := setupReq(http.MethodGet, "/transcript?lectureId=1", "", "", "").WithContext(ctx)

	rr := httptest.NewRecorder()
	GetTranscript(resolver.New(s), Options{}).ServeHTTP(rr, req)

	if rr.Body.Len() != 0 || rr.Header().Get("Content-Type") != "" {
		t.Fatalf("expected nothing written, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestPostTranscript_SRT(t *testing.T) {
	s := store.NewInMemoryStore()
	events := &recordedEvents{}
	handler := PostTranscript(ingest.NewService(s, nil), Options{Events: events})

	body := "1\n00:00:00,400 --> 00:00:01,400\nHello\n\n2\n00:00:01,400 --> 00:00:03,000\nsecond\nline\n"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, setupReq(http.MethodPost, "/transcript?lectureId=77", body, "application/x-subrip", "ops"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeLines(t, rr)
	if len(created) != 2 || created[1].Content != "second\nline" || created[0].EndMs != 1400 {
		t.Fatalf("unexpected lines: %+v", created)
	}

	stored, err := resolver.New(s).LinesForLecture(context.Background(), 77)
	if err != nil {
		t.Fatalf("LinesForLecture: %v", err)
	}
	if diff := cmp.Diff([]transcript.Line(created), stored); diff != "" {
		t.Fatalf("stored mismatch (-created +stored):\n%s", diff)
	}
	if len(events.ingested) != 1 || events.ingested[0] != "ops" {
		t.Fatalf("expected ingested event by ops, got %v", events.ingested)
	}
}

func TestPostTranscript_TimedText(t *testing.T) {
	s := store.NewInMemoryStore()
	body := `<transcript><text start="0.5" dur="1">Hi &amp;#39;all&amp;#39;</text></transcript>`

	rr := httptest.NewRecorder()
	PostTranscript(ingest.NewService(s, nil), Options{}).
		ServeHTTP(rr, setupReq(http.MethodPost, "/transcript?lectureId=3", body, "text/xml; charset=utf-8", ""))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeLines(t, rr); len(got) != 1 || got[0].Content != "Hi 'all'" || got[0].StartMs != 500 {
		t.Fatalf("unexpected lines: %+v", got)
	}
}

func TestPostTranscript_Errors(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		body        string
		contentType string
		wantCode    int
		wantErr     string
	}{
		{"missing id", "/transcript", "x", "application/x-subrip", http.StatusBadRequest, "MISSING_LECTURE_ID"},
		{"bad id", "/transcript?lectureId=x", "x", "application/x-subrip", http.StatusBadRequest, "INVALID_LECTURE_ID"},
		{"unknown type", "/transcript?lectureId=1", "x", "text/plain", http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"},
		{"malformed srt", "/transcript?lectureId=1", "garbage", "application/x-subrip", http.StatusUnprocessableEntity, "INVALID_CAPTIONS"},
		{"invalid json line", "/transcript?lectureId=1", `[{"lectureKey":1,"startTimestampMs":-1,"durationMs":1}]`, "application/json", http.StatusUnprocessableEntity, "INVALID_CAPTIONS"},
		{"foreign lecture", "/transcript?lectureId=1", `[{"lectureKey":2,"startTimestampMs":0,"durationMs":1}]`, "application/json", http.StatusUnprocessableEntity, "INVALID_CAPTIONS"},
	}
	for _, tc := range cases {
		s := store.NewInMemoryStore()
		rr := httptest.NewRecorder()
		PostTranscript(ingest.NewService(s, nil), Options{}).
			ServeHTTP(rr, setupReq(http.MethodPost, tc.url, tc.body, tc.contentType, ""))

		if rr.Code != tc.wantCode {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.wantCode, rr.Code, rr.Body.String())
		}
		if code := decodeError(t, rr).Code; code != tc.wantErr {
			t.Fatalf("%s: expected %s, got %q", tc.name, tc.wantErr, code)
		}
		page, _ := s.Query(context.Background(), store.LectureQuery(1, 0, ""))
		if len(page.Records) != 0 {
			t.Fatalf("%s: records written on error", tc.name)
		}
	}
}

func TestPostTranscript_StoreFailure(t *testing.T) {
	s := store.NewInMemoryStore()
	_ = s.Close()

	rr := httptest.NewRecorder()
	PostTranscript(ingest.NewService(s, nil), Options{}).ServeHTTP(rr,
		setupReq(http.MethodPost, "/transcript?lectureId=1", "1\n00:00:00,000 --> 00:00:01,000\nx\n", "application/x-subrip", ""))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestPostTranscript_TooLarge(t *testing.T) {
	body := strings.Repeat("a", maxUploadBytes+1)
	rr := httptest.NewRecorder()
	PostTranscript(ingest.NewService(store.NewInMemoryStore(), nil), Options{}).ServeHTTP(rr,
		setupReq(http.MethodPost, "/transcript?lectureId=1", body, "application/x-subrip", ""))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}
