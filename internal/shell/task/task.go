// Package task issues tickets for asynchronous UI work so a late response can
// be recognised and dropped once a newer request, or a view change, has
// superseded it.
package task

import "sync"

// Slot names one kind of in-flight work. Only the newest ticket per slot is
// current.
type Slot string

const (
	SlotHistory   Slot = "history"
	SlotCalculate Slot = "calculate"
	SlotHealth    Slot = "health"
	SlotSettings  Slot = "settings"
)

// Ticket identifies one request. The zero Ticket is never current.
type Ticket struct {
	Slot Slot
	Seq  uint64
}

type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	active map[Slot]uint64
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[Slot]uint64)}
}

// Begin supersedes any outstanding ticket for slot.
func (t *Tracker) Begin(slot Slot) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.active[slot] = t.seq
	return Ticket{Slot: slot, Seq: t.seq}
}

// Current reports whether tk is still the newest ticket for its slot.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tk.Seq != 0 && t.active[tk.Slot] == tk.Seq
}

// Finish retires tk if it is current and reports whether it was.
func (t *Tracker) Finish(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk.Seq == 0 || t.active[tk.Slot] != tk.Seq {
		return false
	}
	delete(t.active, tk.Slot)
	return true
}

// Abandon makes every outstanding ticket for slot stale.
func (t *Tracker) Abandon(slot Slot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, slot)
}

// Pending reports whether slot has a current ticket.
func (t *Tracker) Pending(slot Slot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[slot]
	return ok
}
