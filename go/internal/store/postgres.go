package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/sqlutil"
)

// Schema creates the matches table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS matches (
    code         TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    host_session TEXT,
    document     JSONB NOT NULL,
    last_update  BIGINT NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS matches_live_idx ON matches (status, last_update DESC);
`

type PostgresConfig struct {
	DatabaseURL   string // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string
	PingInterval  time.Duration
}

func DefaultPostgresConfig(dsn string) PostgresConfig {
	return PostgresConfig{
		DatabaseURL:   dsn,
		NotifyChannel: "courtside_matches",
		PingInterval:  90 * time.Second,
	}
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type queries struct {
	db dbtx
}

func newQueries(tx pgx.Tx) *queries {
	return &queries{db: tx}
}

func (q *queries) insertMatch(ctx context.Context, doc *models.MatchDocument, raw []byte) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO matches (code, status, host_session, document, last_update)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
	`, doc.Code, string(doc.Status), sqlutil.ToSqlString(doc.HostSession), sqlutil.ToNullRawMessage(raw), doc.LastUpdate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (q *queries) updateMatch(ctx context.Context, doc *models.MatchDocument, raw []byte) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE matches
		SET status = $2, host_session = $3, document = $4, last_update = $5, updated_at = now()
		WHERE code = $1
	`, doc.Code, string(doc.Status), sqlutil.ToSqlString(doc.HostSession), sqlutil.ToNullRawMessage(raw), doc.LastUpdate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (q *queries) notify(ctx context.Context, channel, code string) error {
	_, err := q.db.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, code)
	return err
}

func (q *queries) fetchMatch(ctx context.Context, code string) ([]byte, error) {
	var raw []byte
	err := q.db.QueryRow(ctx, `SELECT document FROM matches WHERE code = $1`, code).Scan(&raw)
	return raw, err
}

func (q *queries) fetchLive(ctx context.Context, limit int) ([][]byte, error) {
	rows, err := q.db.Query(ctx, `
		SELECT document FROM matches
		WHERE status = $1
		ORDER BY last_update DESC
		LIMIT $2
	`, string(models.MatchStatusLive), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// PostgresStore keeps match documents in the matches table and delivers
// changes through LISTEN/NOTIFY
type PostgresStore struct {
	pool     *pgxpool.Pool
	q        *queries
	listener *pq.Listener
	cfg      PostgresConfig

	mu     sync.RWMutex
	subs   map[string]map[int]ChangeFunc
	nextID int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPostgresStore ensures the schema exists and starts the notification listener
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, cfg PostgresConfig) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for match notifications")

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{
		pool:     pool,
		q:        &queries{db: pool},
		listener: l,
		cfg:      cfg,
		subs:     make(map[string]map[int]ChangeFunc),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.listen(loopCtx)
	return s, nil
}

func (s *PostgresStore) Create(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, s.pool, newQueries, func(q *queries) error {
		inserted, err := q.insertMatch(ctx, doc, raw)
		if err != nil {
			return fmt.Errorf("insert match %s: %w", code, err)
		}
		if !inserted {
			return ErrAlreadyExists
		}
		return q.notify(ctx, s.cfg.NotifyChannel, code)
	})
}

func (s *PostgresStore) Read(ctx context.Context, code string) (*models.MatchDocument, error) {
	raw, err := s.q.fetchMatch(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read match %s: %w", code, err)
	}
	return decode(raw)
}

func (s *PostgresStore) Write(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, s.pool, newQueries, func(q *queries) error {
		updated, err := q.updateMatch(ctx, doc, raw)
		if err != nil {
			return fmt.Errorf("update match %s: %w", code, err)
		}
		if !updated {
			return ErrNotFound
		}
		return q.notify(ctx, s.cfg.NotifyChannel, code)
	})
}

func (s *PostgresStore) Subscribe(ctx context.Context, code string, onChange ChangeFunc) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil, ErrClosed
	default:
	}

	id := s.nextID
	s.nextID++
	if s.subs[code] == nil {
		s.subs[code] = make(map[int]ChangeFunc)
	}
	s.subs[code][id] = onChange

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[code], id)
		if len(s.subs[code]) == 0 {
			delete(s.subs, code)
		}
	}, nil
}

func (s *PostgresStore) ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error) {
	if limit <= 0 {
		limit = DefaultLiveLimit
	}
	raws, err := s.q.fetchLive(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	docs := make([]models.MatchDocument, 0, len(raws))
	for _, raw := range raws {
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Close stops the listener. The pool belongs to the caller.
func (s *PostgresStore) Close() error {
	s.cancel()
	<-s.done
	return s.listener.Close()
}

func (s *PostgresStore) listen(ctx context.Context) {
	defer close(s.done)

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("match listener shutting down")
			return
		case note := <-s.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established, so
				// notifications may have been missed
				s.refreshAll(ctx)
				continue
			}
			s.dispatch(ctx, note.Extra)
		case <-pingTicker.C:
			if err := s.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (s *PostgresStore) dispatch(ctx context.Context, code string) {
	s.mu.RLock()
	listeners := make([]ChangeFunc, 0, len(s.subs[code]))
	for _, fn := range s.subs[code] {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	raw, err := s.q.fetchMatch(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("match_code", code).Msg("failed to fetch notified match")
		return
	}
	for _, fn := range listeners {
		doc, err := decode(raw)
		if err != nil {
			log.Error().Err(err).Str("match_code", code).Msg("failed to decode notified match")
			return
		}
		fn(doc)
	}
}

func (s *PostgresStore) refreshAll(ctx context.Context) {
	s.mu.RLock()
	codes := make([]string, 0, len(s.subs))
	for code := range s.subs {
		codes = append(codes, code)
	}
	s.mu.RUnlock()

	for _, code := range codes {
		s.dispatch(ctx, code)
	}
}
