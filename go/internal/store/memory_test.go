package store

import (
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/courtside/go/internal/models"
)

func newDoc(code string, lastUpdate int64) *models.MatchDocument {
	return &models.MatchDocument{
		Code:       code,
		Status:     models.MatchStatusLive,
		TeamA:      models.Team{Name: "Hawks", Roster: []models.Player{{ID: "p1", JerseyNumber: 4}}},
		TeamB:      models.Team{Name: "Owls"},
		Clock:      models.ClockState{Period: 1, Possession: models.SideA},
		LastUpdate: lastUpdate,
	}
}

func TestMemoryCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "ABC123", newDoc("ABC123", 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, "ABC123", newDoc("ABC123", 2)); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	doc, err := s.Read(ctx, "ABC123")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.LastUpdate != 1 {
		t.Fatalf("conflicting create overwrote the document")
	}
}

func TestMemoryReadWriteMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Read(ctx, "NOPE00"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Write(ctx, "NOPE00", newDoc("NOPE00", 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySubscribeDeliversCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Create(ctx, "ABC123", newDoc("ABC123", 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var first, second []*models.MatchDocument
	unsubFirst, err := s.Subscribe(ctx, "ABC123", func(doc *models.MatchDocument) { first = append(first, doc) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := s.Subscribe(ctx, "ABC123", func(doc *models.MatchDocument) { second = append(second, doc) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	doc := newDoc("ABC123", 2)
	doc.TeamA.Score = 5
	if err := s.Write(ctx, "ABC123", doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one delivery each, got %d and %d", len(first), len(second))
	}
	first[0].TeamA.Roster[0].Points = 99
	if second[0].TeamA.Roster[0].Points != 0 {
		t.Fatalf("subscribers share document memory")
	}
	if second[0].TeamA.Score != 5 {
		t.Fatalf("expected score 5, got %d", second[0].TeamA.Score)
	}

	unsubFirst()
	unsubFirst()
	if err := s.Write(ctx, "ABC123", newDoc("ABC123", 3)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("unsubscribe not honoured: %d, %d", len(first), len(second))
	}
}

func TestMemoryListLive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i, code := range []string{"AAAAAA", "BBBBBB", "CCCCCC", "DDDDDD"} {
		doc := newDoc(code, int64(i+1))
		if code == "BBBBBB" {
			doc.Status = models.MatchStatusFinal
		}
		if err := s.Create(ctx, code, doc); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	live, err := s.ListLive(ctx, 2)
	if err != nil {
		t.Fatalf("ListLive: %v", err)
	}
	if len(live) != 2 || live[0].Code != "DDDDDD" || live[1].Code != "CCCCCC" {
		t.Fatalf("unexpected live list %+v", live)
	}
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Create(ctx, "ABC123", newDoc("ABC123", 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Subscribe(ctx, "ABC123", func(*models.MatchDocument) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNewestLiveDefaultsLimit(t *testing.T) {
	var docs []models.MatchDocument
	for i := 0; i < 15; i++ {
		docs = append(docs, *newDoc("X", int64(i)))
	}
	if got := newestLive(docs, 0); len(got) != DefaultLiveLimit {
		t.Fatalf("expected %d, got %d", DefaultLiveLimit, len(got))
	}
}
