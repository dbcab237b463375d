package store

import (
	"sync"
	"time"

	"WaveSentinel/internal/model"
)

// MaxFeedSize bounds the notification feed. It is also the default size.
const MaxFeedSize = 100

// Notifications is the append-only event log. It exposes two views: a
// bounded feed of the most recent events and the full history.
//
// Safe for concurrent use.
type Notifications struct {
	mu       sync.RWMutex
	feed     []model.SignalEvent // ring buffer
	feedPos  int
	feedFull bool
	history  []model.SignalEvent
	lastID   uint64
	now      func() time.Time
}

// NewNotifications creates a store whose feed holds feedSize events. Sizes
// outside (0, MaxFeedSize] fall back to MaxFeedSize.
func NewNotifications(feedSize int) *Notifications {
	if feedSize <= 0 || feedSize > MaxFeedSize {
		feedSize = MaxFeedSize
	}
	return &Notifications{
		feed: make([]model.SignalEvent, feedSize),
		now:  time.Now,
	}
}

// Append assigns the next ID (and a timestamp if missing) and records ev in
// both views. It returns the stored event.
func (n *Notifications) Append(ev model.SignalEvent) model.SignalEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.lastID++
	ev.ID = n.lastID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = n.now()
	}

	n.history = append(n.history, ev)
	n.feed[n.feedPos] = ev
	n.feedPos = (n.feedPos + 1) % len(n.feed)
	if n.feedPos == 0 {
		n.feedFull = true
	}
	return ev
}

// Latest returns up to limit of the most recent feed events in emission
// order. limit <= 0 returns the whole feed.
func (n *Notifications) Latest(limit int) []model.SignalEvent {
	n.mu.RLock()
	defer n.mu.RUnlock()

	size := n.feedLen()
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]model.SignalEvent, limit)
	start := size - limit
	for i := 0; i < limit; i++ {
		out[i] = n.feed[n.feedIndex(start+i)]
	}
	return out
}

// History returns up to limit of the most recent events from the unbounded
// history in emission order. limit <= 0 returns everything.
func (n *Notifications) History(limit int) []model.SignalEvent {
	n.mu.RLock()
	defer n.mu.RUnlock()

	size := len(n.history)
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]model.SignalEvent, limit)
	copy(out, n.history[size-limit:])
	return out
}

// HistoryLen returns the total number of events ever appended.
func (n *Notifications) HistoryLen() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.history)
}

func (n *Notifications) feedLen() int {
	if n.feedFull {
		return len(n.feed)
	}
	return n.feedPos
}

// feedIndex maps a logical position (0 = oldest) to a ring slot.
func (n *Notifications) feedIndex(i int) int {
	if !n.feedFull {
		return i
	}
	return (n.feedPos + i) % len(n.feed)
}
