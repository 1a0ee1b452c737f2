package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcript_store_ops_total",
			Help: "Total transcript store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transcript_store_op_seconds",
			Help:    "Transcript store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps any Store to capture metrics.
type instrumentedStore struct {
	inner   Store
	backend string
}

// NewInstrumentedStore records count and latency of every call on inner,
// labelled with backend.
func NewInstrumentedStore(inner Store, backend string) Store {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	res := "success"
	if err != nil {
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedStore) Create(ctx context.Context, rec Record) (out Record, err error) {
	start := time.Now()
	defer func() { i.observe("create", start, err) }()
	return i.inner.Create(ctx, rec)
}

func (i *instrumentedStore) Query(ctx context.Context, q Query) (p Page, err error) {
	start := time.Now()
	defer func() { i.observe("query", start, err) }()
	return i.inner.Query(ctx, q)
}

// Ping passes through when the wrapped backend supports it.
func (i *instrumentedStore) Ping(ctx context.Context) (err error) {
	p, ok := i.inner.(Pinger)
	if !ok {
		return nil
	}
	start := time.Now()
	defer func() { i.observe("ping", start, err) }()
	return p.Ping(ctx)
}

func (i *instrumentedStore) Close() error { return i.inner.Close() }
