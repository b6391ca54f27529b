package worker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/batchworks/regrade/internal/batch"
)

func TestSlotTableLifecycle(t *testing.T) {
	t.Parallel()

	table := NewSlotTable(3)
	require.Equal(t, 3, table.Len())
	require.Equal(t, []batch.Identifier{IdleSlot, IdleSlot, IdleSlot}, table.Snapshot())

	table.Set(1, 42)
	require.Equal(t, []batch.Identifier{IdleSlot, 42, IdleSlot}, table.Snapshot())

	table.Clear(1)
	require.Equal(t, []batch.Identifier{IdleSlot, IdleSlot, IdleSlot}, table.Snapshot())
}
