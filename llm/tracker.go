package llm

import (
	"sort"
	"sync"
)

// TokenTracker receives the usage of every model call, keyed by slot name.
type TokenTracker interface {
	Add(slot string, usage TokenUsage)
}

// SlotUsage is the accumulated usage of one slot.
type SlotUsage struct {
	Calls int        `json:"calls"`
	Usage TokenUsage `json:"usage"`
}

// UsageLedger is a TokenTracker that keeps per-slot totals for the lifetime
// of a process. It is safe for concurrent use.
type UsageLedger struct {
	mu    sync.Mutex
	slots map[string]SlotUsage
}

// NewUsageLedger creates an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{slots: make(map[string]SlotUsage)}
}

// Add records one call for slot.
func (l *UsageLedger) Add(slot string, usage TokenUsage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.slots[slot]
	entry.Calls++
	entry.Usage = entry.Usage.Add(usage)
	l.slots[slot] = entry
}

// Slot returns the accumulated usage of slot; the zero value if it was never used.
func (l *UsageLedger) Slot(slot string) SlotUsage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slots[slot]
}

// Total sums the usage of every slot.
func (l *UsageLedger) Total() TokenUsage {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total TokenUsage
	for _, entry := range l.slots {
		total = total.Add(entry.Usage)
	}
	return total
}

// Slots returns the names of the slots used so far, sorted.
func (l *UsageLedger) Slots() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.slots))
	for name := range l.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the per-slot usage.
func (l *UsageLedger) Snapshot() map[string]SlotUsage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]SlotUsage, len(l.slots))
	for name, entry := range l.slots {
		out[name] = entry
	}
	return out
}
