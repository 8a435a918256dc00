package cache

import (
	"context"
	"sync"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// MemoryBreachLedger is a process-local ledger for single-instance deployments.
// Entries expire after ttl and are pruned lazily.
type MemoryBreachLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

var _ ports.BreachLedger = (*MemoryBreachLedger)(nil)

func NewMemoryBreachLedger(ttl time.Duration) *MemoryBreachLedger {
	return &MemoryBreachLedger{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *MemoryBreachLedger) MarkNotified(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.entries[key]; ok && (l.ttl <= 0 || now.Before(expires)) {
		return false, nil
	}
	l.prune(now)
	l.entries[key] = now.Add(l.ttl)
	return true, nil
}

func (l *MemoryBreachLedger) prune(now time.Time) {
	if l.ttl <= 0 {
		return
	}
	for key, expires := range l.entries {
		if !now.Before(expires) {
			delete(l.entries, key)
		}
	}
}
