package activity

import (
	"context"
	"directoryhub/internal/models"
	"sync"
	"time"
)

// Kinds used by the dashboard feed.
const (
	KindBusiness = "business"
	KindDocument = "document"
)

const (
	DefaultCapacity = 10
	timeLayout      = "2006-01-02 15:04:05"
)

// Recorder stores dashboard actions.
type Recorder interface {
	Record(ctx context.Context, e models.ActivityEntry) error
	Recent(ctx context.Context, n int) ([]models.ActivityEntry, error)
}

// Ring keeps the most recent entries in memory, newest first.
type Ring struct {
	mu      sync.Mutex
	entries []models.ActivityEntry
	cap     int
	nextID  int64
	now     func() time.Time
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{cap: capacity, now: time.Now}
}

func (r *Ring) Record(_ context.Context, e models.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	e.ID = r.nextID
	if e.Timestamp == "" {
		e.Timestamp = r.now().Format(timeLayout)
	}
	if e.User == "" {
		e.User = "system"
	}
	r.entries = append([]models.ActivityEntry{e}, r.entries...)
	if len(r.entries) > r.cap {
		r.entries = r.entries[:r.cap]
	}
	return nil
}

func (r *Ring) Recent(_ context.Context, n int) ([]models.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]models.ActivityEntry, n)
	copy(out, r.entries[:n])
	return out, nil
}

// Tee records to every recorder and reads from the first one.
type Tee []Recorder

func (t Tee) Record(ctx context.Context, e models.ActivityEntry) error {
	var first error
	for _, r := range t {
		if err := r.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) Recent(ctx context.Context, n int) ([]models.ActivityEntry, error) {
	if len(t) == 0 {
		return nil, nil
	}
	return t[0].Recent(ctx, n)
}
