package llm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageLedger_Add(t *testing.T) {
	ledger := NewUsageLedger()

	synthesis := TokenUsage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120}
	reply := TokenUsage{InputTokens: 200, OutputTokens: 80, TotalTokens: 280}

	ledger.Add(SlotSynthesis, synthesis)
	ledger.Add(SlotReply, reply)
	ledger.Add(SlotReply, reply)

	assert.Equal(t, SlotUsage{Calls: 1, Usage: synthesis}, ledger.Slot(SlotSynthesis))
	assert.Equal(t, SlotUsage{Calls: 2, Usage: reply.Add(reply)}, ledger.Slot(SlotReply))
	assert.Equal(t, SlotUsage{}, ledger.Slot("unused"))
	assert.Equal(t, TokenUsage{InputTokens: 500, OutputTokens: 180, TotalTokens: 680}, ledger.Total())
	assert.Equal(t, []string{SlotReply, SlotSynthesis}, ledger.Slots())
}

func TestUsageLedger_Empty(t *testing.T) {
	ledger := NewUsageLedger()

	assert.True(t, ledger.Total().IsZero())
	assert.Empty(t, ledger.Slots())
	assert.Empty(t, ledger.Snapshot())
}

func TestUsageLedger_SnapshotIsACopy(t *testing.T) {
	ledger := NewUsageLedger()
	ledger.Add(SlotReply, TokenUsage{TotalTokens: 7})

	snap := ledger.Snapshot()
	ledger.Add(SlotReply, TokenUsage{TotalTokens: 3})

	assert.Equal(t, 7, snap[SlotReply].Usage.TotalTokens)
	assert.Equal(t, 1, snap[SlotReply].Calls)
	assert.Equal(t, 10, ledger.Slot(SlotReply).Usage.TotalTokens)
}

func TestUsageLedger_Concurrent(t *testing.T) {
	ledger := NewUsageLedger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Add(SlotSynthesis, TokenUsage{TotalTokens: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ledger.Total().TotalTokens)
	assert.Equal(t, 50, ledger.Slot(SlotSynthesis).Calls)
}
