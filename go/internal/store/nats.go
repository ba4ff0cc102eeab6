package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/models"
)

type NATSConfig struct {
	Bucket   string
	History  uint8
	Replicas int
	// TTL expires matches that have not been written for this long. Zero keeps them forever.
	TTL time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Bucket:   "COURTSIDE_MATCHES",
		History:  1,
		Replicas: 1,
		TTL:      7 * 24 * time.Hour,
	}
}

// NATSStore keeps match documents in a JetStream key-value bucket
type NATSStore struct {
	kv jetstream.KeyValue

	mu       sync.Mutex
	watchers map[int]context.CancelFunc
	nextID   int
	closed   bool
}

// NewNATSStore opens the bucket, creating it when missing
func NewNATSStore(ctx context.Context, js jetstream.JetStream, cfg NATSConfig) (*NATSStore, error) {
	kv, err := js.KeyValue(ctx, cfg.Bucket)
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, fmt.Errorf("get key-value bucket: %w", err)
		}
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "Live match documents keyed by match code",
			History:     cfg.History,
			TTL:         cfg.TTL,
			Storage:     jetstream.FileStorage,
			Replicas:    cfg.Replicas,
		})
		if err != nil {
			return nil, fmt.Errorf("create key-value bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("created JetStream key-value bucket")
	}

	return &NATSStore{
		kv:       kv,
		watchers: make(map[int]context.CancelFunc),
	}, nil
}

func (s *NATSStore) Create(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := s.kv.Create(ctx, code, raw); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create match %s: %w", code, err)
	}
	return nil
}

func (s *NATSStore) Read(ctx context.Context, code string) (*models.MatchDocument, error) {
	entry, err := s.kv.Get(ctx, code)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read match %s: %w", code, err)
	}
	return decode(entry.Value())
}

// Write puts the full document. The bucket has no conditional put that
// matches last-write-wins, so a write for a missing code creates it.
func (s *NATSStore) Write(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, code, raw); err != nil {
		return fmt.Errorf("write match %s: %w", code, err)
	}
	return nil
}

func (s *NATSStore) Subscribe(ctx context.Context, code string, onChange ChangeFunc) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.Background())
	watcher, err := s.kv.Watch(watchCtx, code, jetstream.UpdatesOnly())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch match %s: %w", code, err)
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			if err := watcher.Stop(); err != nil {
				log.Debug().Err(err).Str("match_code", code).Msg("stop key-value watcher")
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil || entry.Operation() != jetstream.KeyValuePut {
					continue
				}
				doc, err := decode(entry.Value())
				if err != nil {
					log.Error().Err(err).Str("match_code", code).Msg("failed to decode watched match")
					continue
				}
				onChange(doc)
			}
		}
	}()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		cancel()
	}, nil
}

func (s *NATSStore) ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []models.MatchDocument{}, nil
		}
		return nil, fmt.Errorf("list match keys: %w", err)
	}
	defer lister.Stop()

	var docs []models.MatchDocument
	for key := range lister.Keys() {
		doc, err := s.Read(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("match_code", key).Msg("skipping unreadable match")
			continue
		}
		docs = append(docs, *doc)
	}
	return newestLive(docs, limit), nil
}

func (s *NATSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, cancel := range s.watchers {
		cancel()
		delete(s.watchers, id)
	}
	return nil
}
