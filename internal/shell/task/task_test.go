package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_NewerTicketSupersedes(t *testing.T) {
	tr := NewTracker()
	first := tr.Begin(SlotHistory)
	second := tr.Begin(SlotHistory)

	assert.False(t, tr.Current(first))
	assert.True(t, tr.Current(second))
}

func TestTracker_SlotsAreIndependent(t *testing.T) {
	tr := NewTracker()
	h := tr.Begin(SlotHistory)
	c := tr.Begin(SlotCalculate)

	assert.True(t, tr.Current(h))
	assert.True(t, tr.Current(c))

	tr.Abandon(SlotHistory)
	assert.False(t, tr.Current(h))
	assert.True(t, tr.Current(c))
}

func TestTracker_FinishRetires(t *testing.T) {
	tr := NewTracker()
	tk := tr.Begin(SlotHealth)

	assert.True(t, tr.Pending(SlotHealth))
	assert.True(t, tr.Finish(tk))
	assert.False(t, tr.Finish(tk), "second finish must report stale")
	assert.False(t, tr.Pending(SlotHealth))
}

func TestTracker_ZeroTicketNeverCurrent(t *testing.T) {
	tr := NewTracker()
	tr.Begin(SlotHistory)
	assert.False(t, tr.Current(Ticket{}))
	assert.False(t, tr.Current(Ticket{Slot: SlotHistory}))
}

func TestTracker_ConcurrentBegin(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	tickets := make([]Ticket, 50)
	for i := range tickets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i] = tr.Begin(SlotHistory)
		}(i)
	}
	wg.Wait()

	current := 0
	for _, tk := range tickets {
		if tr.Current(tk) {
			current++
		}
	}
	assert.Equal(t, 1, current, "exactly one ticket may be current")
}
