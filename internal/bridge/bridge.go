// Package bridge connects the in-memory ledger store to a document store.
// Saves are queued and performed by a background worker so mutations never
// block on persistence; each save's outcome is published on a results
// channel instead of being silently dropped.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"rentledger/internal/docstore"
)

// ErrClosed is returned by Commit after Close.
var ErrClosed = errors.New("bridge closed")

// SaveResult reports the outcome of one queued save.
type SaveResult struct {
	UserID   string
	Attempts int
	Err      error
	Duration time.Duration
}

type saveJob struct {
	userID string
	doc    docstore.Document
}

// Metrics counts save outcomes and observes save latency.
type Metrics struct {
	saves    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics builds bridge metrics and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentledger_saves_total",
			Help: "Document saves by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentledger_save_duration_seconds",
			Help:    "Wall time per document save including retries.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.saves, m.duration)
	}
	return m
}

func (m *Metrics) observe(err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.saves.WithLabelValues(status).Inc()
	m.duration.Observe(d.Seconds())
}

// Options configures a Bridge. Zero values select sensible defaults.
type Options struct {
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	Logger       *zap.Logger
	Metrics      *Metrics
}

// Bridge serializes whole-document saves to a docstore.Store. Saves for the
// same user coalesce: last writer wins, which matches the whole-state
// document model.
type Bridge struct {
	store   docstore.Store
	logger  *zap.Logger
	metrics *Metrics

	maxAttempts int
	backoff     time.Duration

	mu      sync.Mutex
	closed  bool
	queue   chan saveJob
	results chan SaveResult
	wg      sync.WaitGroup
}

// New starts a Bridge with a single background save worker.
func New(store docstore.Store, opts Options) *Bridge {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := &Bridge{
		store:       store,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
		queue:       make(chan saveJob, opts.QueueSize),
		results:     make(chan SaveResult, opts.QueueSize),
	}
	b.wg.Add(1)
	go b.worker()
	return b
}

// Store exposes the underlying document store.
func (b *Bridge) Store() docstore.Store { return b.store }

// Results delivers one SaveResult per accepted Commit. The channel is
// buffered; when no one is draining it, results are dropped rather than
// stalling the worker.
func (b *Bridge) Results() <-chan SaveResult { return b.results }

// Load reads the persisted document for userID directly, bypassing the queue.
func (b *Bridge) Load(ctx context.Context, userID string) (docstore.Document, bool, error) {
	return b.store.Read(ctx, userID)
}

// Commit enqueues a save of doc for userID without blocking. When the queue
// is full the oldest pending save is discarded: every queued document is a
// complete state, so the newest one supersedes it.
func (b *Bridge) Commit(userID string, doc docstore.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	job := saveJob{userID: userID, doc: doc.Clone()}
	for {
		select {
		case b.queue <- job:
			return nil
		default:
		}
		select {
		case stale := <-b.queue:
			b.logger.Warn("save queue full, dropping stale save",
				zap.String("user_id", stale.userID))
		default:
		}
	}
}

// Close stops accepting saves, waits for queued work to drain, and closes
// the results channel.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()
	close(b.results)
}

func (b *Bridge) worker() {
	defer b.wg.Done()
	for job := range b.queue {
		res := b.save(job)
		select {
		case b.results <- res:
		default:
			// nobody draining results; outcome is already logged and counted
		}
	}
}

func (b *Bridge) save(job saveJob) SaveResult {
	start := time.Now()
	var err error
	attempts := 0
	for attempts < b.maxAttempts {
		attempts++
		err = b.store.Write(context.Background(), job.userID, job.doc)
		if err == nil {
			break
		}
		b.logger.Warn("document save failed",
			zap.String("user_id", job.userID),
			zap.Int("attempt", attempts),
			zap.Error(err))
		if attempts < b.maxAttempts {
			time.Sleep(b.backoff)
		}
	}
	res := SaveResult{
		UserID:   job.userID,
		Attempts: attempts,
		Err:      err,
		Duration: time.Since(start),
	}
	b.metrics.observe(err, res.Duration)
	if err != nil {
		b.logger.Error("document save abandoned",
			zap.String("user_id", job.userID),
			zap.Int("attempts", attempts),
			zap.Error(err))
	}
	return res
}
