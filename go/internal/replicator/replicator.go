package replicator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/store"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultCloseTimeout = 5 * time.Second
)

var ErrClosed = errors.New("replicator is closed")

// Replicator pushes host-side documents to the store without ever blocking the host.
// Each match code has one pending slot: a newer document replaces an unwritten older
// one, and a single writer goroutine drains slots in the order codes became dirty.
type Replicator struct {
	store        store.Store
	metrics      *metrics.Recorder
	clock        clockwork.Clock
	writeTimeout time.Duration
	closeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*models.MatchDocument
	order   []string
	writing bool
	settled chan struct{}
	closed  bool
	started bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

type Option func(*Replicator)

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Replicator) { r.metrics = m }
}

func WithClock(c clockwork.Clock) Option {
	return func(r *Replicator) { r.clock = c }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(r *Replicator) { r.writeTimeout = d }
}

func WithCloseTimeout(d time.Duration) Option {
	return func(r *Replicator) { r.closeTimeout = d }
}

func New(s store.Store, opts ...Option) *Replicator {
	r := &Replicator{
		store:        s,
		clock:        clockwork.NewRealClock(),
		writeTimeout: defaultWriteTimeout,
		closeTimeout: defaultCloseTimeout,
		pending:      make(map[string]*models.MatchDocument),
		settled:      make(chan struct{}),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish queues a copy of doc for writing and returns immediately
func (r *Replicator) Publish(doc *models.MatchDocument) {
	snapshot := doc.Clone()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Debug().Str("match_code", doc.Code).Msg("replicator closed, dropping publish")
		return
	}
	if _, queued := r.pending[snapshot.Code]; !queued {
		r.order = append(r.order, snapshot.Code)
	}
	r.pending[snapshot.Code] = snapshot
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Create writes the opening document synchronously. A taken code is returned as
// store.ErrAlreadyExists.
func (r *Replicator) Create(ctx context.Context, doc *models.MatchDocument) error {
	if err := r.store.Create(ctx, doc.Code, doc.Clone()); err != nil {
		return fmt.Errorf("create match %s: %w", doc.Code, err)
	}
	return nil
}

// Read fetches the current stored document
func (r *Replicator) Read(ctx context.Context, code string) (*models.MatchDocument, error) {
	return r.store.Read(ctx, code)
}

// Subscribe forwards every stored change for code, the host's own writes included
func (r *Replicator) Subscribe(ctx context.Context, code string, onChange store.ChangeFunc) (func(), error) {
	return r.store.Subscribe(ctx, code, onChange)
}

func (r *Replicator) ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error) {
	return r.store.ListLive(ctx, limit)
}

// Run drives the writer until ctx is cancelled or Close is called
func (r *Replicator) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.closed || r.started {
		r.mu.Unlock()
		return ErrClosed
	}
	r.started = true
	r.mu.Unlock()
	defer close(r.done)
	log.Info().Msg("replicator started")

	for {
		r.drain(ctx)
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.closed = true
			r.mu.Unlock()
			r.finalDrain()
			return nil
		case <-r.stop:
			r.finalDrain()
			return nil
		case <-r.wake:
		}
	}
}

// Close stops accepting publishes and waits for pending writes to drain
func (r *Replicator) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.mu.Unlock()
	close(r.stop)

	if !started {
		r.finalDrain()
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-r.clock.After(r.closeTimeout + time.Second):
		return fmt.Errorf("replicator drain timed out after %s", r.closeTimeout)
	}
}

// Flush blocks until every queued document has been written or ctx ends
func (r *Replicator) Flush(ctx context.Context) error {
	for {
		r.mu.Lock()
		if len(r.order) == 0 && !r.writing {
			r.mu.Unlock()
			return nil
		}
		ch := r.settled
		r.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Replicator) finalDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), r.closeTimeout)
	defer cancel()
	r.drain(ctx)
}

func (r *Replicator) drain(ctx context.Context) {
	for {
		doc, ok := r.next()
		if !ok {
			return
		}
		r.write(ctx, doc)
	}
}

func (r *Replicator) next() (*models.MatchDocument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return nil, false
	}
	code := r.order[0]
	r.order = r.order[1:]
	doc := r.pending[code]
	delete(r.pending, code)
	r.writing = true
	return doc, true
}

func (r *Replicator) write(ctx context.Context, doc *models.MatchDocument) {
	start := r.clock.Now()
	writeCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	err := r.store.Write(writeCtx, doc.Code, doc)
	cancel()

	r.metrics.RecordPublish(r.clock.Since(start), err)
	if err != nil {
		log.Warn().
			Err(err).
			Str("match_code", doc.Code).
			Int64("last_update", doc.LastUpdate).
			Msg("failed to replicate match document")
	}

	r.mu.Lock()
	r.writing = false
	close(r.settled)
	r.settled = make(chan struct{})
	r.mu.Unlock()
}
