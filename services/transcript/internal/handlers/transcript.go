package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/lecture-platform/internal/platform/api"
	"github.com/example/lecture-platform/internal/platform/auth"
	"github.com/example/lecture-platform/internal/platform/httpserver"
	"github.com/example/lecture-platform/services/transcript/internal/captions"
	"github.com/example/lecture-platform/services/transcript/internal/ingest"
	"github.com/example/lecture-platform/services/transcript/internal/resolver"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

const (
	paramLectureID = "lectureId"
	maxUploadBytes = 10 << 20
)

// LineResolver is satisfied by *resolver.Resolver.
type LineResolver interface {
	LinesForLecture(ctx context.Context, lectureID int64) ([]transcript.Line, error)
}

// Ingester is satisfied by *ingest.Service.
type Ingester interface {
	IngestPayload(ctx context.Context, lectureID int64, format ingest.Format, data []byte) ([]transcript.Line, error)
}

// Events receives business events; *analytics.Publisher implements it.
type Events interface {
	TranscriptViewed(lectureID int64, lines int)
	TranscriptIngested(userID string, lectureID int64, lines int)
}

type Options struct {
	Logger *zap.Logger
	Events Events
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// GetTranscript handles GET /transcript?lectureId=N
func GetTranscript(res LineResolver, opts Options) http.HandlerFunc {
	base := opts.logger()
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		lectureID, ok := lectureIDParam(w, r, rid)
		if !ok {
			return
		}
		log := httpserver.RequestLogger(r.Context(), base).With(zap.Int64("lecture_id", lectureID))

		lines, err := res.LinesForLecture(r.Context(), lectureID)
		if r.Context().Err() != nil {
			// Client is gone; there is nobody to answer.
			return
		}
		if err != nil {
			if errors.Is(err, resolver.ErrStoreUnavailable) {
				log.Warn("transcript read failed", zap.Error(err))
				api.ServiceUnavailable(w, "STORE_UNAVAILABLE", "transcript store unavailable", rid)
				return
			}
			log.Error("transcript read failed", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		api.WriteJSON(w, http.StatusOK, transcript.Lines(lines))
		if opts.Events != nil {
			opts.Events.TranscriptViewed(lectureID, len(lines))
		}
	}
}

// PostTranscript handles POST /transcript?lectureId=N. The body is a caption
// file whose format follows the Content-Type.
func PostTranscript(ing Ingester, opts Options) http.HandlerFunc {
	base := opts.logger()
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		lectureID, ok := lectureIDParam(w, r, rid)
		if !ok {
			return
		}

		format, err := ingest.FormatFromContentType(r.Header.Get("Content-Type"))
		if err != nil {
			api.UnsupportedMediaType(w, "UNSUPPORTED_FORMAT", err.Error(), rid, map[string]any{
				"accepted": []string{"application/x-subrip", "text/xml", "application/xml", "application/json"},
			})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				api.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "caption file too large", rid, nil)
				return
			}
			api.BadRequest(w, "INVALID_BODY", "could not read body", rid, nil)
			return
		}

		log := httpserver.RequestLogger(r.Context(), base).With(zap.Int64("lecture_id", lectureID))
		lines, err := ing.IngestPayload(r.Context(), lectureID, format, body)
		if r.Context().Err() != nil {
			return
		}
		switch {
		case err == nil:
		case errors.Is(err, captions.ErrMalformed),
			errors.Is(err, transcript.ErrValidation),
			errors.Is(err, ingest.ErrLectureMismatch):
			api.UnprocessableEntity(w, "INVALID_CAPTIONS", err.Error(), rid, nil)
			return
		default:
			log.Error("transcript ingest failed", zap.Int("written", len(lines)), zap.Error(err))
			api.ServiceUnavailable(w, "STORE_UNAVAILABLE", "transcript store unavailable", rid)
			return
		}

		api.WriteJSON(w, http.StatusCreated, transcript.Lines(lines))
		if opts.Events != nil {
			uid, _ := auth.UserIDFromContext(r.Context())
			opts.Events.TranscriptIngested(uid, lectureID, len(lines))
		}
	}
}

// lectureIDParam extracts a positive lecture id, answering 400 otherwise.
func lectureIDParam(w http.ResponseWriter, r *http.Request, rid string) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(paramLectureID))
	if raw == "" {
		api.BadRequest(w, "MISSING_LECTURE_ID", "lectureId is required", rid, nil)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "INVALID_LECTURE_ID", "lectureId must be a positive integer", rid,
			map[string]any{"lectureId": raw})
		return 0, false
	}
	return id, true
}
