package feed

import (
	"sync"

	"github.com/ashureev/modmail/internal/domain"
)

// Backlog keeps the most recent activity so new subscribers can catch up.
// When full, the oldest entry is overwritten.
type Backlog struct {
	mu   sync.RWMutex
	buf  []domain.Activity
	head int // write position
	full bool
}

// NewBacklog creates a backlog holding up to size entries.
func NewBacklog(size int) *Backlog {
	if size <= 0 {
		size = 50
	}
	return &Backlog{buf: make([]domain.Activity, size)}
}

// Add appends an entry.
func (b *Backlog) Add(a domain.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf[b.head] = a
	b.head = (b.head + 1) % len(b.buf)
	if b.head == 0 {
		b.full = true
	}
}

// Snapshot returns the entries oldest first.
func (b *Backlog) Snapshot() []domain.Activity {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full {
		out := make([]domain.Activity, b.head)
		copy(out, b.buf[:b.head])
		return out
	}
	out := make([]domain.Activity, 0, len(b.buf))
	out = append(out, b.buf[b.head:]...)
	return append(out, b.buf[:b.head]...)
}

// Len returns the number of stored entries.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.buf)
	}
	return b.head
}

// Capacity returns the maximum number of entries.
func (b *Backlog) Capacity() int {
	return len(b.buf)
}
