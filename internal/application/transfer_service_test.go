package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
	apperrors "github.com/wms-platform/transfer-service/pkg/errors"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

type fakePickingRepo struct {
	pickings map[string]*domain.Picking
	saveErr  error
	findErr  error
	saved    [][]string
}

func newFakePickingRepo() *fakePickingRepo {
	return &fakePickingRepo{pickings: make(map[string]*domain.Picking)}
}

func (f *fakePickingRepo) add(pickings ...*domain.Picking) {
	for _, p := range pickings {
		f.pickings[p.PickingID] = p
	}
}

func (f *fakePickingRepo) Save(ctx context.Context, picking *domain.Picking) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.pickings[picking.PickingID] = picking
	f.saved = append(f.saved, []string{picking.PickingID})
	return nil
}

func (f *fakePickingRepo) SaveAll(ctx context.Context, pickings []*domain.Picking) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	batch := make([]string, 0, len(pickings))
	for _, p := range pickings {
		f.pickings[p.PickingID] = p
		batch = append(batch, p.PickingID)
	}
	f.saved = append(f.saved, batch)
	return nil
}

func (f *fakePickingRepo) FindByID(ctx context.Context, pickingID string) (*domain.Picking, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.pickings[pickingID], nil
}

func (f *fakePickingRepo) FindByIDs(ctx context.Context, pickingIDs []string) ([]*domain.Picking, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	result := make([]*domain.Picking, 0, len(pickingIDs))
	for _, id := range pickingIDs {
		if p, ok := f.pickings[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePickingRepo) FindByWarehouse(ctx context.Context, warehouseID string, states []domain.State, limit int) ([]*domain.Picking, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var result []*domain.Picking
	for _, p := range f.pickings {
		if warehouseID != "" && p.WarehouseID != warehouseID {
			continue
		}
		if len(states) > 0 && !stateIn(p.State, states) {
			continue
		}
		result = append(result, p)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakePickingRepo) FindByState(ctx context.Context, state domain.State, limit int) ([]*domain.Picking, error) {
	return f.FindByWarehouse(ctx, "", []domain.State{state}, limit)
}

func (f *fakePickingRepo) UpsertSnapshot(ctx context.Context, picking *domain.Picking) error {
	f.pickings[picking.PickingID] = picking
	return nil
}

func (f *fakePickingRepo) Delete(ctx context.Context, pickingID string) error {
	delete(f.pickings, pickingID)
	return nil
}

func (f *fakePickingRepo) lastBatch() []string {
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

func stateIn(state domain.State, states []domain.State) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

type fakeWarehouseRepo struct {
	warehouses map[string]*domain.Warehouse
	findErr    error
}

func newFakeWarehouseRepo() *fakeWarehouseRepo {
	return &fakeWarehouseRepo{warehouses: make(map[string]*domain.Warehouse)}
}

func (f *fakeWarehouseRepo) add(warehouses ...*domain.Warehouse) {
	for _, w := range warehouses {
		f.warehouses[w.WarehouseID] = w
	}
}

func (f *fakeWarehouseRepo) Save(ctx context.Context, warehouse *domain.Warehouse) error {
	f.warehouses[warehouse.WarehouseID] = warehouse
	return nil
}

func (f *fakeWarehouseRepo) FindByID(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.warehouses[warehouseID], nil
}

func (f *fakeWarehouseRepo) FindAll(ctx context.Context) ([]*domain.Warehouse, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	result := make([]*domain.Warehouse, 0, len(f.warehouses))
	for _, w := range f.warehouses {
		result = append(result, w)
	}
	return result, nil
}

func (f *fakeWarehouseRepo) UpsertSnapshot(ctx context.Context, warehouse *domain.Warehouse) error {
	f.warehouses[warehouse.WarehouseID] = warehouse
	return nil
}

// Test fixtures

func testWarehouse(warehouseID, tenantID, code string) *domain.Warehouse {
	wh, _ := domain.NewWarehouse(warehouseID, tenantID, code, code+" warehouse")
	wh.LotStockLocation = domain.Location{LocationID: "LOC-" + code + "-STOCK", Name: code + "/Stock", Usage: domain.UsageInternal, WarehouseID: warehouseID}
	wh.InputLocation = domain.Location{LocationID: "LOC-" + code + "-INPUT", Name: code + "/Input", Usage: domain.UsageInternal, WarehouseID: warehouseID}
	wh.OutputLocation = domain.Location{LocationID: "LOC-" + code + "-OUTPUT", Name: code + "/Output", Usage: domain.UsageInternal, WarehouseID: warehouseID}
	wh.PackLocation = domain.Location{LocationID: "LOC-" + code + "-PACK", Name: code + "/Packing", Usage: domain.UsageInternal, WarehouseID: warehouseID}
	wh.OperationTypes = []domain.OperationType{
		{OperationTypeID: "OT-" + code + "-PICK", Name: code + ": Pick", Code: domain.OperationInternal, SequenceCode: "PICK"},
		{OperationTypeID: "OT-" + code + "-OUT", Name: code + ": Delivery", Code: domain.OperationOutgoing, SequenceCode: "OUT"},
		{OperationTypeID: "OT-" + code + "-IN", Name: code + ": Receipt", Code: domain.OperationIncoming, SequenceCode: "IN"},
	}
	return wh
}

func customerLocation() domain.Location {
	return domain.Location{LocationID: "LOC-CUSTOMER", Name: "Partners/Customers", Usage: domain.UsageCustomer}
}

// testPicking builds a single unchained picking with one stockable move
func testPicking(pickingID string, wh *domain.Warehouse, state domain.State) *domain.Picking {
	now := time.Now().Add(-time.Minute)
	move := domain.Move{
		MoveID:         "MOVE-" + pickingID,
		SKU:            "SKU-001",
		ProductName:    "Tracked Widget",
		Quantity:       decimal.NewFromInt(5),
		Tracking:       domain.TrackingSerial,
		State:          state,
		ProcureMethod:  domain.MakeToStock,
		SourceLocation: wh.LotStockLocation,
		DestLocation:   wh.OutputLocation,
	}
	if state == domain.StateAssigned || state == domain.StateDone {
		move.ReservedQty = decimal.NewFromInt(5)
	}
	p := &domain.Picking{
		PickingID:       pickingID,
		Name:            wh.Code + "/PICK/" + pickingID,
		TenantID:        wh.TenantID,
		WarehouseID:     wh.WarehouseID,
		OperationTypeID: "OT-" + wh.Code + "-PICK",
		OperationKind:   domain.OperationInternal,
		SourceLocation:  wh.LotStockLocation,
		DestLocation:    wh.OutputLocation,
		State:           state,
		Moves:           []domain.Move{move},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if state == domain.StateDone {
		doneAt := now
		p.DoneAt = &doneAt
	}
	return p
}

// testChainedPair builds a pick operation feeding a delivery, the way a
// two-step outbound flow chains them: the pick is assigned and the
// delivery waits on it with cancellation propagation enabled.
func testChainedPair(wh *domain.Warehouse) (*domain.Picking, *domain.Picking) {
	now := time.Now().Add(-time.Minute)
	pick := &domain.Picking{
		PickingID:       "PICK-001",
		Name:            wh.Code + "/PICK/00001",
		TenantID:        wh.TenantID,
		WarehouseID:     wh.WarehouseID,
		OperationTypeID: "OT-" + wh.Code + "-PICK",
		OperationKind:   domain.OperationInternal,
		SourceLocation:  wh.LotStockLocation,
		DestLocation:    wh.OutputLocation,
		State:           domain.StateAssigned,
		Moves: []domain.Move{{
			MoveID:         "MOVE-P1",
			SKU:            "SKU-001",
			ProductName:    "Tracked Widget",
			Quantity:       decimal.NewFromInt(5),
			ReservedQty:    decimal.NewFromInt(5),
			Tracking:       domain.TrackingSerial,
			State:          domain.StateAssigned,
			ProcureMethod:  domain.MakeToStock,
			SourceLocation: wh.LotStockLocation,
			DestLocation:   wh.OutputLocation,
			DestMoveIDs:    []string{"MOVE-P2"},
		}},
		NextPickingIDs: []string{"PICK-002"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ship := &domain.Picking{
		PickingID:       "PICK-002",
		Name:            wh.Code + "/OUT/00001",
		TenantID:        wh.TenantID,
		WarehouseID:     wh.WarehouseID,
		OperationTypeID: "OT-" + wh.Code + "-OUT",
		OperationKind:   domain.OperationOutgoing,
		SourceLocation:  wh.OutputLocation,
		DestLocation:    customerLocation(),
		State:           domain.StateWaiting,
		Moves: []domain.Move{{
			MoveID:          "MOVE-P2",
			SKU:             "SKU-001",
			ProductName:     "Tracked Widget",
			Quantity:        decimal.NewFromInt(5),
			Tracking:        domain.TrackingSerial,
			State:           domain.StateWaiting,
			ProcureMethod:   domain.MakeToOrder,
			PropagateCancel: true,
			SourceLocation:  wh.OutputLocation,
			DestLocation:    customerLocation(),
			OrigMoveIDs:     []string{"MOVE-P1"},
		}},
		PrevPickingIDs: []string{"PICK-001"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return pick, ship
}

func newTestTransferService() (*TransferApplicationService, *fakePickingRepo, *fakeWarehouseRepo) {
	pickings := newFakePickingRepo()
	warehouses := newFakeWarehouseRepo()
	logger := logging.New(logging.DefaultConfig("test"))
	return NewTransferApplicationService(pickings, warehouses, logger), pickings, warehouses
}

func requireAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestTransferApplicationService_GetPicking(t *testing.T) {
	t.Run("returns the picking when found", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateAssigned))

		dto, err := service.GetPicking(context.Background(), GetPickingQuery{PickingID: "PICK-010"})

		require.NoError(t, err)
		assert.Equal(t, "PICK-010", dto.PickingID)
		assert.Equal(t, "assigned", dto.State)
		require.Len(t, dto.Moves, 1)
		assert.Equal(t, "SKU-001", dto.Moves[0].SKU)
	})

	t.Run("returns not found for an unknown picking", func(t *testing.T) {
		service, _, _ := newTestTransferService()

		_, err := service.GetPicking(context.Background(), GetPickingQuery{PickingID: "PICK-404"})

		requireAppError(t, err, apperrors.CodeNotFound)
	})

	t.Run("wraps repository failures", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		repo.findErr = errors.New("connection reset")

		_, err := service.GetPicking(context.Background(), GetPickingQuery{PickingID: "PICK-010"})

		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to get picking")
	})
}

func TestTransferApplicationService_ListPickings(t *testing.T) {
	t.Run("filters by state", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(
			testPicking("PICK-010", wh, domain.StateAssigned),
			testPicking("PICK-011", wh, domain.StateDraft),
		)

		dtos, err := service.ListPickings(context.Background(), ListPickingsQuery{State: "assigned"})

		require.NoError(t, err)
		require.Len(t, dtos, 1)
		assert.Equal(t, "PICK-010", dtos[0].PickingID)
	})

	t.Run("filters by warehouse", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh1 := testWarehouse("WH-001", "TENANT-001", "WH1")
		wh2 := testWarehouse("WH-002", "TENANT-001", "WH2")
		repo.add(
			testPicking("PICK-010", wh1, domain.StateAssigned),
			testPicking("PICK-020", wh2, domain.StateAssigned),
		)

		dtos, err := service.ListPickings(context.Background(), ListPickingsQuery{WarehouseID: "WH-002"})

		require.NoError(t, err)
		require.Len(t, dtos, 1)
		assert.Equal(t, "PICK-020", dtos[0].PickingID)
	})

	t.Run("rejects an unknown state filter", func(t *testing.T) {
		service, _, _ := newTestTransferService()

		_, err := service.ListPickings(context.Background(), ListPickingsQuery{State: "parked"})

		requireAppError(t, err, apperrors.CodeValidationError)
	})
}

func TestTransferApplicationService_CancelToDraft(t *testing.T) {
	t.Run("returns selected pickings to draft", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateAssigned))

		result, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{
			PickingIDs: []string{"PICK-010"},
			Reason:     "wrong carrier",
		})

		require.NoError(t, err)
		require.Len(t, result.Pickings, 1)
		assert.Equal(t, "draft", result.Pickings[0].State)
		assert.Equal(t, 0, result.CascadedMoves)

		saved := repo.pickings["PICK-010"]
		assert.Equal(t, domain.StateDraft, saved.State)
		require.Len(t, saved.Moves, 1)
		assert.Equal(t, domain.StateDraft, saved.Moves[0].State)
		assert.True(t, saved.Moves[0].ReservedQty.IsZero())
	})

	t.Run("cascades cancellation to chained destinations", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		pick, ship := testChainedPair(wh)
		repo.add(pick, ship)

		result, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{
			PickingIDs: []string{"PICK-001"},
		})

		require.NoError(t, err)
		require.Len(t, result.Pickings, 1)
		assert.Equal(t, "PICK-001", result.Pickings[0].PickingID)
		assert.Equal(t, "draft", result.Pickings[0].State)
		assert.Equal(t, 1, result.CascadedMoves)

		assert.Equal(t, domain.StateCancelled, repo.pickings["PICK-002"].State)
		assert.ElementsMatch(t, []string{"PICK-001", "PICK-002"}, repo.lastBatch())
	})

	t.Run("include chained extends the action to the whole chain", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		pick, ship := testChainedPair(wh)
		repo.add(pick, ship)

		result, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{
			PickingIDs:     []string{"PICK-002"},
			IncludeChained: true,
		})

		require.NoError(t, err)
		require.Len(t, result.Pickings, 2)

		for _, id := range []string{"PICK-001", "PICK-002"} {
			assert.Equal(t, domain.StateDraft, repo.pickings[id].State, id)
		}
		// chain references survive the full cycle
		assert.Equal(t, []string{"PICK-002"}, repo.pickings["PICK-001"].NextPickingIDs)
		assert.Equal(t, []string{"PICK-001"}, repo.pickings["PICK-002"].PrevPickingIDs)
		assert.Equal(t, []string{"MOVE-P1"}, repo.pickings["PICK-002"].Moves[0].OrigMoveIDs)
		assert.Equal(t, domain.MakeToOrder, repo.pickings["PICK-002"].Moves[0].ProcureMethod)
	})

	t.Run("done pickings block the batch", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(
			testPicking("PICK-010", wh, domain.StateAssigned),
			testPicking("PICK-011", wh, domain.StateDone),
		)

		_, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{
			PickingIDs: []string{"PICK-010", "PICK-011"},
		})

		appErr := requireAppError(t, err, apperrors.CodeTerminalState)
		assert.Contains(t, appErr.Details["blockingPickingIds"], "PICK-011")
		// nothing was persisted
		assert.Empty(t, repo.saved)
		assert.Equal(t, domain.StateAssigned, repo.pickings["PICK-010"].State)
	})

	t.Run("done chain members outside the action set do not block", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		pick, ship := testChainedPair(wh)
		ship.State = domain.StateDone
		ship.Moves[0].State = domain.StateDone
		repo.add(pick, ship)

		result, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{
			PickingIDs: []string{"PICK-001"},
		})

		require.NoError(t, err)
		assert.Equal(t, 0, result.CascadedMoves)
		assert.Equal(t, domain.StateDraft, repo.pickings["PICK-001"].State)
		assert.Equal(t, domain.StateDone, repo.pickings["PICK-002"].State)
		// the untouched done member is not rewritten
		assert.Equal(t, []string{"PICK-001"}, repo.lastBatch())
	})

	t.Run("missing pickings fail with not found", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateAssigned))

		_, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{
			PickingIDs: []string{"PICK-010", "PICK-404"},
		})

		appErr := requireAppError(t, err, apperrors.CodeNotFound)
		assert.Contains(t, appErr.Details["pickingIds"], "PICK-404")
	})

	t.Run("rejects an empty selection", func(t *testing.T) {
		service, _, _ := newTestTransferService()

		_, err := service.CancelToDraft(context.Background(), CancelToDraftCommand{})

		requireAppError(t, err, apperrors.CodeValidationError)
	})
}

func TestTransferApplicationService_CancelPicking(t *testing.T) {
	t.Run("cancels the picking and cascades through the chain", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		pick, ship := testChainedPair(wh)
		repo.add(pick, ship)

		dto, err := service.CancelPicking(context.Background(), CancelPickingCommand{
			PickingID: "PICK-001",
			Reason:    "stock damaged",
		})

		require.NoError(t, err)
		assert.Equal(t, "cancelled", dto.State)
		assert.Equal(t, domain.StateCancelled, repo.pickings["PICK-002"].State)
	})

	t.Run("fails on a done picking", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateDone))

		_, err := service.CancelPicking(context.Background(), CancelPickingCommand{PickingID: "PICK-010"})

		requireAppError(t, err, apperrors.CodeTerminalState)
		assert.Equal(t, domain.StateDone, repo.pickings["PICK-010"].State)
	})

	t.Run("returns not found for an unknown picking", func(t *testing.T) {
		service, _, _ := newTestTransferService()

		_, err := service.CancelPicking(context.Background(), CancelPickingCommand{PickingID: "PICK-404"})

		requireAppError(t, err, apperrors.CodeNotFound)
	})
}

func TestTransferApplicationService_ReturnToDraft(t *testing.T) {
	t.Run("returns a cancelled picking to draft keeping serials", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		picking := testPicking("PICK-010", wh, domain.StateCancelled)
		picking.Moves[0].LotSerial = "SN-0042"
		repo.add(picking)

		dto, err := service.ReturnToDraft(context.Background(), BackToDraftCommand{PickingID: "PICK-010"})

		require.NoError(t, err)
		assert.Equal(t, "draft", dto.State)
		assert.Equal(t, "SN-0042", dto.Moves[0].LotSerial)
		assert.Equal(t, domain.StateDraft, repo.pickings["PICK-010"].Moves[0].State)
	})

	t.Run("chained moves regain make-to-order sourcing", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		picking := testPicking("PICK-010", wh, domain.StateCancelled)
		picking.Moves[0].OrigMoveIDs = []string{"MOVE-UP"}
		picking.Moves[0].ProcureMethod = domain.MakeToStock
		repo.add(picking)

		_, err := service.ReturnToDraft(context.Background(), BackToDraftCommand{PickingID: "PICK-010"})

		require.NoError(t, err)
		assert.Equal(t, domain.MakeToOrder, repo.pickings["PICK-010"].Moves[0].ProcureMethod)
	})

	t.Run("fails on a picking that was not cancelled", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateAssigned))

		_, err := service.ReturnToDraft(context.Background(), BackToDraftCommand{PickingID: "PICK-010"})

		requireAppError(t, err, apperrors.CodeValidationError)
	})

	t.Run("fails on a done picking", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateDone))

		_, err := service.ReturnToDraft(context.Background(), BackToDraftCommand{PickingID: "PICK-010"})

		requireAppError(t, err, apperrors.CodeTerminalState)
	})
}

func TestTransferApplicationService_ConfirmPicking(t *testing.T) {
	t.Run("confirms and reserves an unchained draft picking", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateDraft))

		dto, err := service.ConfirmPicking(context.Background(), ConfirmPickingCommand{PickingID: "PICK-010"})

		require.NoError(t, err)
		assert.Equal(t, "assigned", dto.State)
		saved := repo.pickings["PICK-010"]
		assert.Equal(t, domain.StateAssigned, saved.Moves[0].State)
		assert.True(t, saved.Moves[0].ReservedQty.Equal(saved.Moves[0].Quantity))
	})

	t.Run("reserves a chained picking when its origins are healthy", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		pick, ship := testChainedPair(wh)
		ship.State = domain.StateDraft
		ship.Moves[0].State = domain.StateDraft
		repo.add(pick, ship)

		dto, err := service.ConfirmPicking(context.Background(), ConfirmPickingCommand{PickingID: "PICK-002"})

		require.NoError(t, err)
		assert.Equal(t, "assigned", dto.State)
	})

	t.Run("leaves a chained picking waiting when an origin is cancelled", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		pick, ship := testChainedPair(wh)
		pick.State = domain.StateCancelled
		pick.Moves[0].State = domain.StateCancelled
		ship.State = domain.StateDraft
		ship.Moves[0].State = domain.StateDraft
		repo.add(pick, ship)

		dto, err := service.ConfirmPicking(context.Background(), ConfirmPickingCommand{PickingID: "PICK-002"})

		require.NoError(t, err)
		assert.Equal(t, "waiting", dto.State)
		assert.True(t, repo.pickings["PICK-002"].Moves[0].ReservedQty.IsZero())
	})

	t.Run("fails on a picking that is not draft", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateAssigned))

		_, err := service.ConfirmPicking(context.Background(), ConfirmPickingCommand{PickingID: "PICK-010"})

		requireAppError(t, err, apperrors.CodeValidationError)
	})

	t.Run("fails on a done picking", func(t *testing.T) {
		service, repo, _ := newTestTransferService()
		wh := testWarehouse("WH-001", "TENANT-001", "WH1")
		repo.add(testPicking("PICK-010", wh, domain.StateDone))

		_, err := service.ConfirmPicking(context.Background(), ConfirmPickingCommand{PickingID: "PICK-010"})

		requireAppError(t, err, apperrors.CodeTerminalState)
	})
}

func TestTransferApplicationService_Warehouses(t *testing.T) {
	t.Run("returns a warehouse by ID", func(t *testing.T) {
		service, _, warehouses := newTestTransferService()
		warehouses.add(testWarehouse("WH-001", "TENANT-001", "WH1"))

		dto, err := service.GetWarehouse(context.Background(), GetWarehouseQuery{WarehouseID: "WH-001"})

		require.NoError(t, err)
		assert.Equal(t, "WH-001", dto.WarehouseID)
		assert.Len(t, dto.OperationTypes, 3)
	})

	t.Run("returns not found for an unknown warehouse", func(t *testing.T) {
		service, _, _ := newTestTransferService()

		_, err := service.GetWarehouse(context.Background(), GetWarehouseQuery{WarehouseID: "WH-404"})

		requireAppError(t, err, apperrors.CodeNotFound)
	})

	t.Run("lists all warehouses", func(t *testing.T) {
		service, _, warehouses := newTestTransferService()
		warehouses.add(
			testWarehouse("WH-001", "TENANT-001", "WH1"),
			testWarehouse("WH-002", "TENANT-001", "WH2"),
		)

		dtos, err := service.ListWarehouses(context.Background())

		require.NoError(t, err)
		assert.Len(t, dtos, 2)
	})
}
