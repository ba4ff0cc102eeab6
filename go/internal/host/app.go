package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/feedback"
	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/store"
)

// DefaultLease is how long a host's last write keeps other hosts out
const DefaultLease = 30 * time.Second

// Replicator defines what the host app needs from the replication layer
type Replicator interface {
	Publisher
	Create(ctx context.Context, doc *models.MatchDocument) error
	Read(ctx context.Context, code string) (*models.MatchDocument, error)
	Subscribe(ctx context.Context, code string, onChange store.ChangeFunc) (func(), error)
	ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error)
}

// NewMatchRequest carries everything needed to open a match. Code is optional.
type NewMatchRequest struct {
	Code     string
	Settings models.MatchSettings
	TeamA    models.Team
	TeamB    models.Team
}

// App handles match hosting: creation, command execution and session lifetime
type App struct {
	engine   *match.Engine
	repl     Replicator
	emitter  feedback.Emitter
	metrics  *metrics.Recorder
	clock    clockwork.Clock
	lease    time.Duration
	sessions *Registry

	openMu sync.Mutex
}

type Option func(*App)

func WithClock(c clockwork.Clock) Option {
	return func(a *App) { a.clock = c }
}

func WithLease(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.lease = d
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(a *App) { a.metrics = m }
}

// NewApp creates a host App. emitter may be nil.
func NewApp(engine *match.Engine, repl Replicator, emitter feedback.Emitter, opts ...Option) *App {
	a := &App{
		engine:   engine,
		repl:     repl,
		emitter:  emitter,
		clock:    clockwork.NewRealClock(),
		lease:    DefaultLease,
		sessions: NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rules returns the ruleset the engine enforces
func (a *App) Rules() match.Ruleset { return a.engine.Rules }

// CreateMatch builds the opening document, stores it and starts hosting it
func (a *App) CreateMatch(ctx context.Context, req NewMatchRequest) (*models.MatchDocument, error) {
	code := req.Code
	if code == "" {
		code = NewCode()
	} else {
		var ok bool
		if code, ok = NormalizeCode(code); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCode, req.Code)
		}
	}

	assignPlayerIDs(&req.TeamA)
	assignPlayerIDs(&req.TeamB)
	if err := models.ValidateNewMatch(req.Settings, req.TeamA, req.TeamB); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	doc := a.engine.NewMatch(code, req.Settings, req.TeamA, req.TeamB)
	doc.LastUpdate = a.clock.Now().UnixMilli()
	if err := a.repl.Create(ctx, doc); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrCodeTaken, code)
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	a.openMu.Lock()
	sess, err := a.open(ctx, doc)
	a.openMu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("match_code", code).
		Str("game_name", req.Settings.GameName).
		Str("period_type", string(req.Settings.PeriodType)).
		Msg("match created")
	return sess.Snapshot(), nil
}

// Resume takes over hosting of a stored match, refusing while another host's lease holds
func (a *App) Resume(ctx context.Context, code string) (*models.MatchDocument, error) {
	sess, err := a.session(ctx, code)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Execute applies cmd to the match hosted under code
func (a *App) Execute(ctx context.Context, code string, cmd match.Command) (*models.MatchDocument, error) {
	sess, err := a.session(ctx, code)
	if err != nil {
		return nil, err
	}

	doc, err := sess.Execute(ctx, cmd)
	if errors.Is(err, ErrFenced) {
		a.sessions.Remove(sess)
		sess.Close()
	}
	return doc, err
}

// Get returns the current document, preferring the local session over the store
func (a *App) Get(ctx context.Context, code string) (*models.MatchDocument, error) {
	code, ok := NormalizeCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if sess, ok := a.sessions.Get(code); ok {
		return sess.Snapshot(), nil
	}
	doc, err := a.repl.Read(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return doc, nil
}

// ListLive returns the most recently updated live matches
func (a *App) ListLive(ctx context.Context) ([]models.MatchDocument, error) {
	docs, err := a.repl.ListLive(ctx, store.DefaultLiveLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list live matches: %w", err)
	}
	return docs, nil
}

// Close stops hosting code. The stored document is left as it is.
func (a *App) Close(code string) bool {
	code, _ = NormalizeCode(code)
	sess, ok := a.sessions.Get(code)
	if !ok {
		return false
	}
	a.sessions.Remove(sess)
	sess.Close()
	return true
}

// Hosted lists the codes this process is hosting
func (a *App) Hosted() []string {
	return a.sessions.Codes()
}

// Shutdown closes every session
func (a *App) Shutdown() {
	sessions := a.sessions.Drain()
	for _, s := range sessions {
		s.Close()
	}
	log.Info().Int("sessions", len(sessions)).Msg("host app shut down")
}

func (a *App) session(ctx context.Context, code string) (*Session, error) {
	code, ok := NormalizeCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if sess, ok := a.sessions.Get(code); ok {
		return sess, nil
	}

	a.openMu.Lock()
	defer a.openMu.Unlock()
	if sess, ok := a.sessions.Get(code); ok {
		return sess, nil
	}

	doc, err := a.repl.Read(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
		}
		return nil, fmt.Errorf("failed to read match: %w", err)
	}
	if a.leaseHeld(doc) {
		return nil, fmt.Errorf("%w: %s", ErrMatchLocked, code)
	}
	return a.open(ctx, doc)
}

// leaseHeld reports whether another host wrote doc within the lease window
func (a *App) leaseHeld(doc *models.MatchDocument) bool {
	if doc.HostSession == "" || doc.IsFinal() {
		return false
	}
	age := a.clock.Now().UnixMilli() - doc.LastUpdate
	return age < a.lease.Milliseconds()
}

// open starts a session for doc. Callers hold openMu.
func (a *App) open(ctx context.Context, doc *models.MatchDocument) (*Session, error) {
	if existing, ok := a.sessions.Get(doc.Code); ok {
		return existing, nil
	}

	sess := newSession(doc, sessionDeps{
		engine:  a.engine,
		clock:   a.clock,
		pub:     a.repl,
		emitter: a.emitter,
		metrics: a.metrics,
	})
	unsubscribe, err := a.repl.Subscribe(context.WithoutCancel(ctx), doc.Code, sess.Observe)
	if err != nil {
		log.Warn().Err(err).Str("match_code", doc.Code).Msg("host subscription failed, fencing disabled")
	} else {
		sess.unsubscribe = unsubscribe
	}
	a.sessions.Add(sess)
	return sess, nil
}

func assignPlayerIDs(t *models.Team) {
	t.Roster = append([]models.Player(nil), t.Roster...)
	for i := range t.Roster {
		if t.Roster[i].ID == "" {
			t.Roster[i].ID = uuid.NewString()
		}
	}
}
