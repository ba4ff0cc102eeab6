package viewer

import (
	"sync"
	"sync/atomic"

	"github.com/mcdev12/courtside/go/internal/models"
)

// Mirror holds the latest document a viewer has received. Older documents,
// judged by lastUpdate, are ignored.
type Mirror struct {
	doc atomic.Pointer[models.MatchDocument]

	mu        sync.RWMutex
	listeners map[int]func(*models.MatchDocument)
	nextID    int
}

func NewMirror() *Mirror {
	return &Mirror{listeners: make(map[int]func(*models.MatchDocument))}
}

// Apply keeps doc if it is at least as new as the current one and notifies listeners.
// It reports whether doc was kept.
func (m *Mirror) Apply(doc *models.MatchDocument) bool {
	if doc == nil {
		return false
	}
	next := doc.Clone()
	for {
		cur := m.doc.Load()
		if cur != nil && next.LastUpdate < cur.LastUpdate {
			return false
		}
		if m.doc.CompareAndSwap(cur, next) {
			break
		}
	}

	m.mu.RLock()
	listeners := make([]func(*models.MatchDocument), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(next.Clone())
	}
	return true
}

// Snapshot returns a copy of the current document, nil before the first Apply
func (m *Mirror) Snapshot() *models.MatchDocument {
	return m.doc.Load().Clone()
}

// LastUpdate returns the lastUpdate of the held document, zero when empty
func (m *Mirror) LastUpdate() int64 {
	if cur := m.doc.Load(); cur != nil {
		return cur.LastUpdate
	}
	return 0
}

// OnChange registers fn for every kept document and returns a func that removes it
func (m *Mirror) OnChange(fn func(*models.MatchDocument)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}
