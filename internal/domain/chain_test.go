package domain

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func createChainedPickings() (*Picking, *Picking) {
	pick := createTestPicking()
	pick.NextPickingIDs = []string{"OUT-001"}
	pick.Moves[0].DestMoveIDs = []string{"MOVE-101"}
	pick.Moves[1].DestMoveIDs = []string{"MOVE-102"}

	source := Location{LocationID: "LOC-WH1-OUTPUT", Name: "WH1/Output", Usage: UsageInternal, WarehouseID: "WH-001"}
	dest := Location{LocationID: "LOC-CUSTOMER", Name: "Partners/Customers", Usage: UsageCustomer}
	outMoves := []Move{
		{
			MoveID:          "MOVE-101",
			SKU:             "SKU-001",
			Quantity:        decimal.NewFromInt(5),
			Tracking:        TrackingSerial,
			ProcureMethod:   MakeToOrder,
			PropagateCancel: true,
			OrigMoveIDs:     []string{"MOVE-001"},
		},
		{
			MoveID:          "MOVE-102",
			SKU:             "SKU-002",
			Quantity:        decimal.NewFromInt(3),
			Tracking:        TrackingNone,
			ProcureMethod:   MakeToOrder,
			PropagateCancel: true,
			OrigMoveIDs:     []string{"MOVE-002"},
		},
	}
	opType := OperationType{OperationTypeID: "OT-WH1-OUT", Code: OperationOutgoing, SequenceCode: "OUT"}
	out, _ := NewPicking("OUT-001", "WH1/OUT/00001", "TENANT-001", "WH-001", opType, source, dest, outMoves)
	out.PrevPickingIDs = []string{"PICK-001"}

	return pick, out
}

func chainLoaderFor(pickings ...*Picking) ChainLoader {
	byID := make(map[string]*Picking, len(pickings))
	for _, p := range pickings {
		byID[p.PickingID] = p
	}
	return func(ctx context.Context, pickingID string) (*Picking, error) {
		return byID[pickingID], nil
	}
}

// TestCollectChain tests chain traversal from any member
func TestCollectChain(t *testing.T) {
	pick, out := createChainedPickings()
	loader := chainLoaderFor(pick, out)

	t.Run("Walk downstream from the first member", func(t *testing.T) {
		chain, err := CollectChain(context.Background(), pick, loader)

		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, "PICK-001", chain[0].PickingID)
		assert.Equal(t, "OUT-001", chain[1].PickingID)
	})

	t.Run("Walk upstream from the last member", func(t *testing.T) {
		chain, err := CollectChain(context.Background(), out, loader)

		require.NoError(t, err)
		assert.Len(t, chain, 2)
	})

	t.Run("Mutual references terminate", func(t *testing.T) {
		pick.PrevPickingIDs = []string{"OUT-001"}
		defer func() { pick.PrevPickingIDs = nil }()

		chain, err := CollectChain(context.Background(), pick, loader)

		require.NoError(t, err)
		assert.Len(t, chain, 2)
	})

	t.Run("Dangling reference fails the walk", func(t *testing.T) {
		_, err := CollectChain(context.Background(), pick, chainLoaderFor(pick))

		assert.ErrorIs(t, err, ErrChainBroken)
	})
}

// TestOrderUpstreamFirst tests deterministic topological ordering
func TestOrderUpstreamFirst(t *testing.T) {
	t.Run("Successor comes after its predecessor", func(t *testing.T) {
		pick, out := createChainedPickings()

		ordered := OrderUpstreamFirst([]*Picking{out, pick})

		require.Len(t, ordered, 2)
		assert.Equal(t, "PICK-001", ordered[0].PickingID)
		assert.Equal(t, "OUT-001", ordered[1].PickingID)
	})

	t.Run("Three stage chain orders fully", func(t *testing.T) {
		pick, pack := createChainedPickings()
		pack.PickingID = "PACK-001"
		pick.NextPickingIDs = []string{"PACK-001"}
		pack.PrevPickingIDs = []string{"PICK-001"}
		pack.NextPickingIDs = []string{"OUT-002"}

		source := Location{LocationID: "LOC-WH1-PACK", Usage: UsageInternal, WarehouseID: "WH-001"}
		dest := Location{LocationID: "LOC-CUSTOMER", Usage: UsageCustomer}
		opType := OperationType{OperationTypeID: "OT-WH1-OUT", Code: OperationOutgoing, SequenceCode: "OUT"}
		out, err := NewPicking("OUT-002", "WH1/OUT/00002", "TENANT-001", "WH-001", opType, source, dest, createTestMoves())
		require.NoError(t, err)
		out.PrevPickingIDs = []string{"PACK-001"}

		ordered := OrderUpstreamFirst([]*Picking{out, pick, pack})

		require.Len(t, ordered, 3)
		assert.Equal(t, "PICK-001", ordered[0].PickingID)
		assert.Equal(t, "PACK-001", ordered[1].PickingID)
		assert.Equal(t, "OUT-002", ordered[2].PickingID)
	})

	t.Run("Unlinked members sort by ID", func(t *testing.T) {
		a := createTestPicking()
		a.PickingID = "A-001"
		b := createTestPicking()
		b.PickingID = "B-001"

		ordered := OrderUpstreamFirst([]*Picking{b, a})

		assert.Equal(t, "A-001", ordered[0].PickingID)
		assert.Equal(t, "B-001", ordered[1].PickingID)
	})
}

// TestPropagateSerials tests serial propagation down the chain
func TestPropagateSerials(t *testing.T) {
	t.Run("Serial reaches the chained destination move", func(t *testing.T) {
		pick, out := createChainedPickings()
		require.NoError(t, pick.AssignLotSerial("MOVE-001", "SN-0001"))

		result := PropagateSerials([]*Picking{pick, out})

		assert.Equal(t, 1, result.Applied)
		assert.Equal(t, 0, result.Missed)
		move, ok := out.MoveByID("MOVE-101")
		require.True(t, ok)
		assert.Equal(t, "SN-0001", move.LotSerial)

		events := out.GetDomainEvents()
		event, isPropagated := events[len(events)-1].(*TransferSerialsPropagatedEvent)
		require.True(t, isPropagated)
		assert.Equal(t, 1, event.MoveCount)
	})

	t.Run("SKU mismatch falls back to a matching line", func(t *testing.T) {
		pick, out := createChainedPickings()
		require.NoError(t, pick.AssignLotSerial("MOVE-001", "SN-0002"))
		out.Moves[0].SKU = "SKU-OTHER"
		out.Moves = append(out.Moves, Move{
			MoveID:   "MOVE-103",
			SKU:      "SKU-001",
			Quantity: decimal.NewFromInt(5),
			Tracking: TrackingSerial,
			State:    StateDraft,
		})

		result := PropagateSerials([]*Picking{pick, out})

		assert.Equal(t, 1, result.Applied)
		assert.Equal(t, 0, result.Missed)
		move, ok := out.MoveByID("MOVE-103")
		require.True(t, ok)
		assert.Equal(t, "SN-0002", move.LotSerial)
	})

	t.Run("Unmatchable destination is counted as a miss", func(t *testing.T) {
		pick, out := createChainedPickings()
		require.NoError(t, pick.AssignLotSerial("MOVE-001", "SN-0003"))
		out.Moves[0].SKU = "SKU-OTHER"

		result := PropagateSerials([]*Picking{pick, out})

		assert.Equal(t, 0, result.Applied)
		assert.Equal(t, 1, result.Missed)
	})

	t.Run("Dangling destination reference is counted as a miss", func(t *testing.T) {
		pick, _ := createChainedPickings()
		require.NoError(t, pick.AssignLotSerial("MOVE-001", "SN-0004"))

		result := PropagateSerials([]*Picking{pick})

		assert.Equal(t, 0, result.Applied)
		assert.Equal(t, 1, result.Missed)
	})

	t.Run("Done destination with another serial is counted as a miss", func(t *testing.T) {
		pick, out := createChainedPickings()
		require.NoError(t, pick.AssignLotSerial("MOVE-001", "SN-0005"))
		out.Moves[0].State = StateDone
		out.Moves[0].LotSerial = "SN-9999"

		result := PropagateSerials([]*Picking{pick, out})

		assert.Equal(t, 0, result.Applied)
		assert.Equal(t, 1, result.Missed)
		assert.Equal(t, "SN-9999", out.Moves[0].LotSerial)
	})

	t.Run("Second pass applies nothing", func(t *testing.T) {
		pick, out := createChainedPickings()
		require.NoError(t, pick.AssignLotSerial("MOVE-001", "SN-0006"))

		first := PropagateSerials([]*Picking{pick, out})
		second := PropagateSerials([]*Picking{pick, out})

		assert.Equal(t, 1, first.Applied)
		assert.Equal(t, 0, second.Applied)
		assert.Equal(t, 0, second.Missed)
	})
}

// TestCascadeCancellations tests cancellation ripple across the chain
func TestCascadeCancellations(t *testing.T) {
	t.Run("Cancellation reaches flagged downstream moves", func(t *testing.T) {
		pick, out := createChainedPickings()
		require.NoError(t, pick.Cancel("order cancelled"))

		cancelled := CascadeCancellations([]*Picking{pick, out})

		assert.Equal(t, 2, cancelled)
		assert.True(t, out.State.IsCancelled())
		for _, move := range out.Moves {
			assert.True(t, move.State.IsCancelled())
		}

		events := out.GetDomainEvents()
		event, isCancelled := events[len(events)-1].(*TransferCancelledEvent)
		require.True(t, isCancelled)
		assert.Equal(t, 2, event.MoveCount)
	})

	t.Run("Unflagged moves are left alone", func(t *testing.T) {
		pick, out := createChainedPickings()
		out.Moves[0].PropagateCancel = false
		out.Moves[1].PropagateCancel = false
		require.NoError(t, pick.Cancel("order cancelled"))

		cancelled := CascadeCancellations([]*Picking{pick, out})

		assert.Equal(t, 0, cancelled)
		assert.False(t, out.State.IsCancelled())
	})

	t.Run("Cancellation ripples across several stages", func(t *testing.T) {
		pick, pack := createChainedPickings()
		pack.PickingID = "PACK-001"
		pack.Moves[0].DestMoveIDs = []string{"MOVE-201"}

		source := Location{LocationID: "LOC-WH1-PACK", Usage: UsageInternal, WarehouseID: "WH-001"}
		dest := Location{LocationID: "LOC-CUSTOMER", Usage: UsageCustomer}
		opType := OperationType{OperationTypeID: "OT-WH1-OUT", Code: OperationOutgoing, SequenceCode: "OUT"}
		out, err := NewPicking("OUT-002", "WH1/OUT/00002", "TENANT-001", "WH-001", opType, source, dest, []Move{
			{
				MoveID:          "MOVE-201",
				SKU:             "SKU-001",
				Quantity:        decimal.NewFromInt(5),
				ProcureMethod:   MakeToOrder,
				PropagateCancel: true,
				OrigMoveIDs:     []string{"MOVE-101"},
			},
		})
		require.NoError(t, err)

		require.NoError(t, pick.Cancel("order cancelled"))
		cancelled := CascadeCancellations([]*Picking{pick, pack, out})

		assert.Equal(t, 3, cancelled)
		assert.True(t, pack.State.IsCancelled())
		assert.True(t, out.State.IsCancelled())
	})

	t.Run("Origin outside the chain blocks the cascade", func(t *testing.T) {
		_, out := createChainedPickings()

		cancelled := CascadeCancellations([]*Picking{out})

		assert.Equal(t, 0, cancelled)
	})
}
