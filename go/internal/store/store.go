package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/mcdev12/courtside/go/internal/models"
)

var (
	ErrAlreadyExists = errors.New("match document already exists")
	ErrNotFound      = errors.New("match document not found")
	ErrClosed        = errors.New("store is closed")
)

// ChangeFunc receives every document written under a subscribed code.
// It is called from the driver's delivery goroutine and must not block.
type ChangeFunc func(doc *models.MatchDocument)

// Store is the shared remote document store keyed by match code
type Store interface {
	// Create stores doc only if no document exists under code
	Create(ctx context.Context, code string, doc *models.MatchDocument) error
	Read(ctx context.Context, code string) (*models.MatchDocument, error)
	// Write replaces the full document. It is best effort with no ordering guarantee
	// across writers.
	Write(ctx context.Context, code string, doc *models.MatchDocument) error
	Subscribe(ctx context.Context, code string, onChange ChangeFunc) (func(), error)
	// ListLive returns up to limit live matches, most recently updated first
	ListLive(ctx context.Context, limit int) ([]models.MatchDocument, error)
	Close() error
}

// DefaultLiveLimit caps the live-games feed
const DefaultLiveLimit = 10

func encode(doc *models.MatchDocument) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode match document: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*models.MatchDocument, error) {
	var doc models.MatchDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}
	return &doc, nil
}

// newestLive filters live documents, sorts them by lastUpdate descending and applies limit
func newestLive(docs []models.MatchDocument, limit int) []models.MatchDocument {
	live := docs[:0]
	for _, d := range docs {
		if d.Status == models.MatchStatusLive {
			live = append(live, d)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].LastUpdate > live[j].LastUpdate
	})
	if limit <= 0 {
		limit = DefaultLiveLimit
	}
	if len(live) > limit {
		live = live[:limit]
	}
	return live
}
