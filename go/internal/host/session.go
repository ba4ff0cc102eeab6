package host

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/feedback"
	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/viewer"
)

// Publisher is the part of the replicator a session writes through
type Publisher interface {
	Publish(doc *models.MatchDocument)
}

type commandRequest struct {
	cmd   match.Command
	reply chan commandResult
}

type commandResult struct {
	doc *models.MatchDocument
	err error
}

// Session owns one match document. A single goroutine applies commands and clock
// ticks in arrival order, so the document is never shared.
type Session struct {
	code    string
	token   string
	engine  *match.Engine
	clock   clockwork.Clock
	pub     Publisher
	emitter feedback.Emitter
	metrics *metrics.Recorder
	mirror  *viewer.Mirror

	commands chan commandRequest
	remote   chan *models.MatchDocument
	stop     chan struct{}
	done     chan struct{}

	closeOnce   sync.Once
	unsubscribe func()

	// owned by the loop goroutine
	doc    *models.MatchDocument
	ticker clockwork.Ticker
	fenced bool
}

type sessionDeps struct {
	engine  *match.Engine
	clock   clockwork.Clock
	pub     Publisher
	emitter feedback.Emitter
	metrics *metrics.Recorder
}

// newSession claims doc with a fresh token and starts the loop. The claimed
// document is published before newSession returns.
func newSession(doc *models.MatchDocument, deps sessionDeps) *Session {
	s := &Session{
		code:     doc.Code,
		token:    uuid.NewString(),
		engine:   deps.engine,
		clock:    deps.clock,
		pub:      deps.pub,
		emitter:  deps.emitter,
		metrics:  deps.metrics,
		mirror:   viewer.NewMirror(),
		commands: make(chan commandRequest),
		remote:   make(chan *models.MatchDocument, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		doc:      doc.Clone(),
	}
	s.commit()
	s.syncTicker()
	s.metrics.SessionOpened()

	log.Info().
		Str("match_code", s.code).
		Str("host_session", s.token).
		Msg("host session opened")

	go s.loop()
	return s
}

func (s *Session) Code() string  { return s.code }
func (s *Session) Token() string { return s.token }

// Mirror is the host's own read path, fed by every commit
func (s *Session) Mirror() *viewer.Mirror { return s.mirror }

// Snapshot returns a copy of the latest committed document
func (s *Session) Snapshot() *models.MatchDocument { return s.mirror.Snapshot() }

// Execute applies cmd and returns the committed document
func (s *Session) Execute(ctx context.Context, cmd match.Command) (*models.MatchDocument, error) {
	req := commandRequest{cmd: cmd, reply: make(chan commandResult, 1)}
	select {
	case s.commands <- req:
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.doc, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Observe handles a document seen on the store subscription. It never blocks.
func (s *Session) Observe(doc *models.MatchDocument) {
	if doc == nil || doc.HostSession == "" || doc.HostSession == s.token {
		return
	}
	select {
	case s.remote <- doc:
	default:
		log.Warn().Str("match_code", s.code).Msg("remote observation dropped")
	}
}

// Close stops the clock and the loop. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.metrics.SessionClosed()
		log.Info().Str("match_code", s.code).Msg("host session closed")
	})
}

// Done is closed once the loop has exited
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	defer close(s.done)
	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.Chan()
		}

		select {
		case <-s.stop:
			s.stopTicker()
			return
		case req := <-s.commands:
			doc, err := s.apply(req.cmd)
			req.reply <- commandResult{doc: doc, err: err}
		case <-tick:
			s.tick()
		case doc := <-s.remote:
			s.fenceIfNewer(doc)
		}
	}
}

func (s *Session) apply(cmd match.Command) (*models.MatchDocument, error) {
	if s.fenced {
		s.metrics.RecordCommand(string(cmd.Kind), ErrFenced)
		return nil, ErrFenced
	}

	fx, err := s.engine.Apply(s.doc, cmd)
	s.metrics.RecordCommand(string(cmd.Kind), err)
	if err != nil {
		log.Debug().
			Err(err).
			Str("match_code", s.code).
			Str("kind", string(cmd.Kind)).
			Msg("command rejected")
		return nil, err
	}

	s.commit()
	s.syncTicker()

	s.emit(feedback.KindAction, string(cmd.Kind))
	if fx.Ended {
		s.emit(feedback.KindHorn, "final")
	}
	return s.doc.Clone(), nil
}

func (s *Session) tick() {
	fx := s.engine.Tick(s.doc)
	s.metrics.RecordTick()
	s.commit()
	s.syncTicker()

	if fx.ShotClockExpired {
		s.emit(feedback.KindShotClockViolation, "")
	}
	if fx.Expired {
		log.Info().
			Str("match_code", s.code).
			Int("period", s.doc.Clock.Period).
			Msg("period clock expired")
		s.emit(feedback.KindHorn, "period_end")
	}
}

// commit stamps the document and hands it to the mirror and the replicator
func (s *Session) commit() {
	now := s.clock.Now().UnixMilli()
	if now > s.doc.LastUpdate {
		s.doc.LastUpdate = now
	}
	s.doc.HostSession = s.token
	s.mirror.Apply(s.doc)
	s.pub.Publish(s.doc)
}

func (s *Session) fenceIfNewer(remote *models.MatchDocument) {
	if s.fenced || remote.LastUpdate <= s.doc.LastUpdate {
		return
	}
	s.fenced = true
	s.stopTicker()
	log.Warn().
		Str("match_code", s.code).
		Str("host_session", s.token).
		Str("remote_session", remote.HostSession).
		Int64("remote_last_update", remote.LastUpdate).
		Msg("newer write from another host, fencing session")
}

// syncTicker runs the ticker exactly while the game clock runs
func (s *Session) syncTicker() {
	running := s.doc.Clock.GameRunning && !s.fenced
	switch {
	case running && s.ticker == nil:
		s.ticker = s.clock.NewTicker(s.engine.Clock.TickUnit())
	case !running && s.ticker != nil:
		s.stopTicker()
	}
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) emit(kind feedback.Kind, detail string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(feedback.Signal{
		Code:   s.code,
		Kind:   kind,
		Detail: detail,
		Period: s.doc.Clock.Period,
		At:     s.clock.Now(),
	})
}
