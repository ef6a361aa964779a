package database

import (
	"context"
	"slices"
	"sync"
)

// accountLocks hands out one exclusive slot per account id. Entries are
// reference counted so idle accounts do not accumulate.
type accountLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{slots: make(map[string]*lockSlot)}
}

// acquire locks every id in sorted order and returns a release func.
// On ctx expiry the locks taken so far are released.
func (l *accountLocks) acquire(ctx context.Context, ids []string) (func(), error) {
	ordered := normalizeIds(ids)
	held := make([]string, 0, len(ordered))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, id := range ordered {
		slot := l.ref(id)
		select {
		case slot.ch <- struct{}{}:
			held = append(held, id)
		case <-ctx.Done():
			l.unref(id)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (l *accountLocks) ref(id string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[id]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = slot
	}
	slot.refs++
	return slot
}

func (l *accountLocks) unref(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := l.slots[id]
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, id)
	}
}

func (l *accountLocks) unlock(id string) {
	l.mu.Lock()
	slot := l.slots[id]
	l.mu.Unlock()
	<-slot.ch
	l.unref(id)
}

// size reports how many account slots are currently referenced.
func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func normalizeIds(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
