// Package worker consumes transcript ingestion jobs from JetStream.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/lecture-platform/services/transcript/internal/captions"
	"github.com/example/lecture-platform/services/transcript/internal/ingest"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

const (
	StreamName     = "TRANSCRIPT_JOBS"
	SubjectIngest  = "transcript.ingest"
	SubjectDLQ     = "transcript.dlq"
	streamSubjects = "transcript.>"
	durableName    = "transcript_ingest"
)

// Job is the payload published on SubjectIngest. Payload holds the caption
// file in the named format.
type Job struct {
	LectureID int64  `json:"lecture_id"`
	Format    string `json:"format"`
	Payload   string `json:"payload"`
}

// Ingester is the part of ingest.Service the worker needs.
type Ingester interface {
	IngestPayload(ctx context.Context, lectureID int64, format ingest.Format, data []byte) ([]transcript.Line, error)
}

type Worker struct {
	Log    *zap.Logger
	JS     nats.JetStreamContext
	Ingest Ingester

	MaxDeliver int
}

func NewWorker(log *zap.Logger, nc *nats.Conn, ing Ingester) (*Worker, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Worker{Log: log, JS: js, Ingest: ing, MaxDeliver: 5}, nil
}

func (w *Worker) EnsureStream(ctx context.Context) error {
	info, err := w.JS.StreamInfo(StreamName, nats.Context(ctx))
	if err == nil {
		for _, s := range info.Config.Subjects {
			if s == streamSubjects {
				return nil
			}
		}
		cfg := info.Config
		cfg.Subjects = []string{streamSubjects}
		_, err := w.JS.UpdateStream(&cfg, nats.Context(ctx))
		return err
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = w.JS.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{streamSubjects},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	}, nats.Context(ctx))
	return err
}

// Submit publishes a job onto the ingest subject.
func Submit(js nats.JetStreamContext, job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = js.Publish(SubjectIngest, b)
	return err
}

func (w *Worker) Run(ctx context.Context) error {
	if err := w.EnsureStream(ctx); err != nil {
		return err
	}
	sub, err := w.JS.PullSubscribe(SubjectIngest, durableName)
	if err != nil {
		return err
	}
	w.Log.Info("consumer started", zap.String("subject", SubjectIngest))
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(1, nats.MaxWait(2*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, m := range msgs {
			w.handleMsg(ctx, m)
		}
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

func (w *Worker) handleMsg(ctx context.Context, m *nats.Msg) {
	numDelivered := uint64(1)
	if md, err := m.Metadata(); err == nil && md != nil {
		numDelivered = md.NumDelivered
	}

	out, reason := w.process(ctx, m.Data, numDelivered)
	switch out {
	case outcomeDeadLetter:
		if err := w.publishDLQ(m.Data, reason); err != nil {
			w.Log.Error("dlq publish failed", zap.Error(err))
		}
		_ = m.Ack()
	case outcomeRetry:
		_ = m.NakWithDelay(backoffDelay(numDelivered))
	default:
		_ = m.Ack()
	}
}

// process runs one delivery of a job. Payloads that can never succeed are
// acked and dropped; store failures are retried until MaxDeliver.
func (w *Worker) process(ctx context.Context, data []byte, numDelivered uint64) (outcome, string) {
	if w.MaxDeliver > 0 && int(numDelivered) > w.MaxDeliver {
		return outcomeDeadLetter, fmt.Sprintf("max deliveries exceeded: %d", numDelivered)
	}

	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		w.Log.Warn("bad payload", zap.String("subject", SubjectIngest), zap.Error(err))
		return outcomeAck, ""
	}
	if j.LectureID <= 0 {
		w.Log.Warn("bad lecture_id", zap.Int64("lecture_id", j.LectureID))
		return outcomeAck, ""
	}
	format, err := ingest.ParseFormat(j.Format)
	if err != nil {
		w.Log.Warn("bad format", zap.String("format", j.Format))
		return outcomeAck, ""
	}

	lines, err := w.Ingest.IngestPayload(ctx, j.LectureID, format, []byte(j.Payload))
	if err != nil {
		if permanent(err) {
			w.Log.Warn("job rejected", zap.Int64("lecture_id", j.LectureID), zap.Error(err))
			return outcomeAck, ""
		}
		w.Log.Warn("ingest failed", zap.Int64("lecture_id", j.LectureID), zap.Uint64("attempt", numDelivered), zap.Error(err))
		return outcomeRetry, ""
	}
	w.Log.Info("job done", zap.Int64("lecture_id", j.LectureID), zap.Int("lines", len(lines)))
	return outcomeAck, ""
}

func permanent(err error) bool {
	return errors.Is(err, transcript.ErrValidation) ||
		errors.Is(err, ingest.ErrUnknownFormat) ||
		errors.Is(err, ingest.ErrLectureMismatch) ||
		errors.Is(err, captions.ErrMalformed)
}

func (w *Worker) publishDLQ(data []byte, reason string) error {
	msg := map[string]any{"subject": SubjectIngest, "reason": reason, "payload": json.RawMessage(data)}
	b, _ := json.Marshal(msg)
	_, err := w.JS.Publish(SubjectDLQ, b)
	return err
}
