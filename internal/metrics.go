package internal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"construction-api/internal/store"
)

// Metrics provides Prometheus metrics for HTTP requests and store calls
type Metrics struct {
	reqTotal     *prometheus.CounterVec
	reqLatency   *prometheus.HistogramVec
	storeLatency *prometheus.HistogramVec
	registry     *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	reqTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	reqLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	storeLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Document store call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation", "outcome"},
	)

	registry.MustRegister(reqTotal, reqLatency, storeLatency)

	return &Metrics{
		reqTotal:     reqTotal,
		reqLatency:   reqLatency,
		storeLatency: storeLatency,
		registry:     registry,
	}
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			// Label by route pattern so /projects/{id} is one series.
			path := r.URL.Path
			if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil {
				if pattern := chiCtx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			status := http.StatusText(rw.code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeStore(collection, op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	m.storeLatency.WithLabelValues(collection, op, outcome).Observe(time.Since(start).Seconds())
}

// instrumentedRepository times every call to the wrapped repository.
type instrumentedRepository[T store.Document] struct {
	next       store.Repository[T]
	collection string
	metrics    *Metrics
}

func instrument[T store.Document](m *Metrics, collection string, repo store.Repository[T]) store.Repository[T] {
	return &instrumentedRepository[T]{next: repo, collection: collection, metrics: m}
}

func (r *instrumentedRepository[T]) List(ctx context.Context) ([]T, error) {
	start := time.Now()
	docs, err := r.next.List(ctx)
	r.metrics.observeStore(r.collection, "list", start, err)
	return docs, err
}

func (r *instrumentedRepository[T]) Insert(ctx context.Context, doc T) error {
	start := time.Now()
	err := r.next.Insert(ctx, doc)
	r.metrics.observeStore(r.collection, "insert", start, err)
	return err
}

func (r *instrumentedRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	start := time.Now()
	doc, err := r.next.FindByID(ctx, id)
	r.metrics.observeStore(r.collection, "find", start, err)
	return doc, err
}

func (r *instrumentedRepository[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	start := time.Now()
	doc, err := r.next.Update(ctx, id, fields)
	r.metrics.observeStore(r.collection, "update", start, err)
	return doc, err
}

func (r *instrumentedRepository[T]) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := r.next.Delete(ctx, id)
	r.metrics.observeStore(r.collection, "delete", start, err)
	return err
}

func (r *instrumentedRepository[T]) InsertMany(ctx context.Context, docs []T) (int, error) {
	start := time.Now()
	n, err := r.next.InsertMany(ctx, docs)
	r.metrics.observeStore(r.collection, "insert_many", start, err)
	return n, err
}

// statusRecorder captures the HTTP status code for metrics and logging
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	return sr.ResponseWriter.Write(b)
}
