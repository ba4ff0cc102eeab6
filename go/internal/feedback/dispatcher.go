package feedback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/metrics"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 2 * time.Second
)

// Dispatcher queues signals and delivers them to a sink from one goroutine.
// Emit never blocks: a full queue drops the signal.
type Dispatcher struct {
	sink        Sink
	metrics     *metrics.Recorder
	queue       chan Signal
	sendTimeout time.Duration

	started   atomic.Bool
	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

func NewDispatcher(sink Sink, queueSize int, m *metrics.Recorder) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		sink:        sink,
		metrics:     m,
		queue:       make(chan Signal, queueSize),
		sendTimeout: defaultSendTimeout,
		closing:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Emit queues sig and reports whether it was accepted
func (d *Dispatcher) Emit(sig Signal) bool {
	select {
	case <-d.closing:
		return false
	default:
	}

	select {
	case d.queue <- sig:
		return true
	default:
		d.metrics.RecordFeedbackDropped(string(sig.Kind))
		log.Warn().
			Str("match_code", sig.Code).
			Str("kind", string(sig.Kind)).
			Msg("feedback queue full, dropping signal")
		return false
	}
}

// Run delivers queued signals until ctx is cancelled or Close is called
func (d *Dispatcher) Run(ctx context.Context) {
	d.started.Store(true)
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.closing:
			d.drain()
			return
		case sig := <-d.queue:
			d.deliver(ctx, sig)
		}
	}
}

// Close stops the dispatcher after delivering what is already queued, then closes the sink
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() { close(d.closing) })
	if !d.started.Load() {
		d.drain()
		return d.sink.Close()
	}
	select {
	case <-d.done:
	case <-time.After(d.sendTimeout * 2):
		log.Warn().Msg("feedback dispatcher did not stop in time")
	}
	return d.sink.Close()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case sig := <-d.queue:
			d.deliver(context.Background(), sig)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sig Signal) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err := d.sink.Send(sendCtx, sig)
	d.metrics.RecordFeedback(string(sig.Kind), err)
	if err != nil {
		log.Error().
			Err(err).
			Str("match_code", sig.Code).
			Str("kind", string(sig.Kind)).
			Msg("failed to deliver feedback signal")
	}
}
