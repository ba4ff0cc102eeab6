package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/models"
)

type RedisConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		KeyPrefix: "courtside",
		TTL:       7 * 24 * time.Hour,
	}
}

// RedisStore keeps one string key per match, publishes every write on a
// per-match channel and indexes live matches in a sorted set scored by lastUpdate
type RedisStore struct {
	rdb *redis.Client
	cfg RedisConfig

	mu      sync.Mutex
	pubsubs map[int]*redis.PubSub
	nextID  int
	closed  bool
}

func NewRedisStore(rdb *redis.Client, cfg RedisConfig) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		cfg:     cfg,
		pubsubs: make(map[int]*redis.PubSub),
	}
}

func (s *RedisStore) Create(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.matchKey(code), raw, s.cfg.TTL).Result()
	if err != nil {
		return fmt.Errorf("create match %s: %w", code, err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return s.announce(ctx, code, doc, raw)
}

func (s *RedisStore) Read(ctx context.Context, code string) (*models.MatchDocument, error) {
	raw, err := s.rdb.Get(ctx, s.matchKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read match %s: %w", code, err)
	}
	return decode(raw)
}

func (s *RedisStore) Write(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, s.matchKey(code), raw, s.cfg.TTL).Result()
	if err != nil {
		return fmt.Errorf("write match %s: %w", code, err)
	}
	if !ok {
		return ErrNotFound
	}
	return s.announce(ctx, code, doc, raw)
}

// announce publishes the new document and keeps the live index in step with its status
func (s *RedisStore) announce(ctx context.Context, code string, doc *models.MatchDocument, raw []byte) error {
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, s.channel(code), raw)
		if doc.Status == models.MatchStatusLive {
			pipe.ZAdd(ctx, s.liveKey(), redis.Z{Score: float64(doc.LastUpdate), Member: code})
		} else {
			pipe.ZRem(ctx, s.liveKey(), code)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("announce match %s: %w", code, err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, code string, onChange ChangeFunc) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	pubsub := s.rdb.Subscribe(ctx, s.channel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe match %s: %w", code, err)
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.pubsubs[id] = pubsub
	s.mu.Unlock()

	go func() {
		for msg := range pubsub.Channel() {
			doc, err := decode([]byte(msg.Payload))
			if err != nil {
				log.Error().Err(err).Str("match_code", code).Msg("failed to decode published match")
				continue
			}
			onChange(doc)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.pubsubs, id)
			s.mu.Unlock()
			if err := pubsub.Close(); err != nil {
				log.Debug().Err(err).Str("match_code", code).Msg("close pubsub")
			}
		})
	}, nil
}

func (s *RedisStore) ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error) {
	if limit <= 0 {
		limit = DefaultLiveLimit
	}
	codes, err := s.rdb.ZRevRange(ctx, s.liveKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	if len(codes) == 0 {
		return []models.MatchDocument{}, nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = s.matchKey(code)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load live matches: %w", err)
	}

	docs := make([]models.MatchDocument, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired key still indexed
			s.rdb.ZRem(ctx, s.liveKey(), codes[i])
			continue
		}
		doc, err := decode([]byte(raw))
		if err != nil {
			log.Warn().Err(err).Str("match_code", codes[i]).Msg("skipping unreadable match")
			continue
		}
		docs = append(docs, *doc)
	}
	return newestLive(docs, limit), nil
}

// Close unsubscribes every watcher. The client belongs to the caller.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for id, ps := range s.pubsubs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.pubsubs, id)
	}
	return errors.Join(errs...)
}

func (s *RedisStore) matchKey(code string) string {
	return s.cfg.KeyPrefix + ":match:" + strings.TrimSpace(code)
}

func (s *RedisStore) channel(code string) string {
	return s.cfg.KeyPrefix + ":match:" + strings.TrimSpace(code) + ":changes"
}

func (s *RedisStore) liveKey() string {
	return s.cfg.KeyPrefix + ":live"
}
