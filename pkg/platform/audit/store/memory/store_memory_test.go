package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ranchdesk/pkg/domain"
	audit "ranchdesk/pkg/platform/audit"
)

func TestInMemoryStore_SequenceIsUniqueUnderConcurrency(t *testing.T) {
	store := NewInMemoryStore()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	const n = 100

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := &audit.Entry{
				ID:         id.NewAuditEntryID(),
				EntityType: audit.EntityContract,
				EntityID:   "c-1",
				Action:     audit.ActionContractVerified,
				Timestamp:  ts,
			}
			assert.NoError(t, store.Append(context.Background(), e))
		}()
	}
	wg.Wait()

	entries, err := store.FindForEntity(context.Background(), audit.EntityContract, "c-1")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Seq, entries[i].Seq)
	}
}

func TestInMemoryStore_AppendHonoursCancelledContext(t *testing.T) {
	store := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Append(ctx, &audit.Entry{EntityType: audit.EntityContract, EntityID: "c-1"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestInMemoryStore_EntitiesAreIsolated(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, &audit.Entry{EntityType: audit.EntityContract, EntityID: "a", Action: audit.ActionContractGenerated}))
	require.NoError(t, store.Append(ctx, &audit.Entry{EntityType: audit.EntityContract, EntityID: "b", Action: audit.ActionContractGenerated}))

	a, err := store.FindForEntity(ctx, audit.EntityContract, "a")
	require.NoError(t, err)
	assert.Len(t, a, 1)

	none, err := store.FindForEntityByActions(ctx, audit.EntityContract, "a", []audit.Action{audit.ActionContractSigned})
	require.NoError(t, err)
	assert.Empty(t, none)
}
