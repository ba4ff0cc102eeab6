package store

import (
	"context"
	"sync"

	"github.com/mcdev12/courtside/go/internal/models"
)

// MemoryStore keeps encoded documents in process and fans changes out synchronously.
// Every subscriber gets its own decoded copy, the same as it would from a remote store.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	subs   map[string]map[int]ChangeFunc
	nextID int
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
		subs: make(map[string]map[int]ChangeFunc),
	}
}

func (s *MemoryStore) Create(ctx context.Context, code string, doc *models.MatchDocument) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, exists := s.docs[code]; exists {
		s.mu.Unlock()
		return ErrAlreadyExists
	}
	s.docs[code] = raw
	listeners := s.listenersLocked(code)
	s.mu.Unlock()

	s.fanOut(raw, listeners)
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, code string) (*models.MatchDocument, error) {
	s.mu.RLock()
	raw, ok := s.docs[code]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, ErrNotFound
	}
	return decode(raw)
}

func (s *MemoryStore) Write(ctx context.Context, code string, doc *models.MatchDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, exists := s.docs[code]; !exists {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.docs[code] = raw
	listeners := s.listenersLocked(code)
	s.mu.Unlock()

	s.fanOut(raw, listeners)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, code string, onChange ChangeFunc) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	id := s.nextID
	s.nextID++
	if s.subs[code] == nil {
		s.subs[code] = make(map[int]ChangeFunc)
	}
	s.subs[code][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[code], id)
			if len(s.subs[code]) == 0 {
				delete(s.subs, code)
			}
		})
	}, nil
}

func (s *MemoryStore) ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	raws := make([][]byte, 0, len(s.docs))
	for _, raw := range s.docs {
		raws = append(raws, raw)
	}
	s.mu.RUnlock()

	docs := make([]models.MatchDocument, 0, len(raws))
	for _, raw := range raws {
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return newestLive(docs, limit), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[string]map[int]ChangeFunc)
	return nil
}

func (s *MemoryStore) listenersLocked(code string) []ChangeFunc {
	subs := s.subs[code]
	if len(subs) == 0 {
		return nil
	}
	out := make([]ChangeFunc, 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func (s *MemoryStore) fanOut(raw []byte, listeners []ChangeFunc) {
	for _, fn := range listeners {
		doc, err := decode(raw)
		if err != nil {
			return
		}
		fn(doc)
	}
}
