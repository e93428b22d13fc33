// Package audit persists authorization decisions as session activity rows.
// Denials are written durably before the response leaves; allows go through a
// buffered queue drained by a background worker.
package audit

import (
	"context"
	"log/slog"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
)

// DefaultQueueSize bounds the allow-path queue. When full, records are
// dropped and counted rather than blocking request handling.
const DefaultQueueSize = 1024

type Recorder struct {
	Store  store.Store
	Logger *slog.Logger

	queue  chan domain.SessionActivity
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewRecorder(st store.Store, logger *slog.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		Store:  st,
		Logger: logger,
		queue:  make(chan domain.SessionActivity, queueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background writer. Non-blocking; call Stop to flush and
// shut down.
func (r *Recorder) Start() {
	go r.run()
	r.Logger.Info("audit recorder started", "queue_size", cap(r.queue))
}

// Stop drains everything still queued, then shuts the worker down.
func (r *Recorder) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("audit recorder stopped")
}

// Record enqueues an activity row best-effort. Never blocks the caller; a
// full queue drops the record with a log line.
func (r *Recorder) Record(a domain.SessionActivity) {
	select {
	case r.queue <- a:
	default:
		r.Logger.Warn("audit queue full, dropping record",
			"endpoint", a.Endpoint, "identity_id", a.IdentityID)
	}
}

// RecordSync writes an activity row durably before returning. Used for
// denials, where the record must exist before the response is sent.
func (r *Recorder) RecordSync(ctx context.Context, a domain.SessionActivity) error {
	return r.Store.Activities().AppendActivity(ctx, a)
}

func (r *Recorder) run() {
	defer close(r.doneCh)

	for {
		select {
		case a := <-r.queue:
			r.write(a)
		case <-r.stopCh:
			r.drain()
			return
		}
	}
}

// drain empties whatever is queued at shutdown.
func (r *Recorder) drain() {
	for {
		select {
		case a := <-r.queue:
			r.write(a)
		default:
			return
		}
	}
}

// write persists one row. Failure is logged and swallowed; an audit write
// must never surface as a request error.
func (r *Recorder) write(a domain.SessionActivity) {
	if err := r.Store.Activities().AppendActivity(context.Background(), a); err != nil {
		r.Logger.Error("audit write failed",
			"endpoint", a.Endpoint, "identity_id", a.IdentityID, "error", err)
	}
}
