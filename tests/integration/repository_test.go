package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/kafka"
	sharedtesting "github.com/wms-platform/transfer-service/pkg/testing"
)

// Test fixtures
func createTestPicking(pickingID, name string) *domain.Picking {
	opType := domain.OperationType{
		OperationTypeID: "OT-WH1-INT",
		Name:            "WH1 Internal Transfers",
		Code:            domain.OperationInternal,
		SequenceCode:    "INT",
	}
	source := domain.Location{
		LocationID:  "LOC-WH1-STOCK",
		Name:        "WH1/Stock",
		Usage:       domain.UsageInternal,
		WarehouseID: "WH-001",
	}
	dest := domain.Location{
		LocationID:  "LOC-WH1-OUT",
		Name:        "WH1/Output",
		Usage:       domain.UsageInternal,
		WarehouseID: "WH-001",
	}
	moves := []domain.Move{
		{
			SKU:             "SKU-001",
			ProductName:     "Steel bracket",
			Quantity:        decimal.NewFromInt(5),
			Tracking:        domain.TrackingSerial,
			ProcureMethod:   domain.MakeToStock,
			PropagateCancel: true,
		},
		{
			SKU:           "SKU-002",
			ProductName:   "Rubber gasket",
			Quantity:      decimal.RequireFromString("2.5"),
			Tracking:      domain.TrackingNone,
			ProcureMethod: domain.MakeToStock,
		},
	}

	picking, _ := domain.NewPicking(pickingID, name, "tenant-001", "WH-001", opType, source, dest, moves)
	return picking
}

func createTestWarehouse(warehouseID, code, name string) *domain.Warehouse {
	warehouse, _ := domain.NewWarehouse(warehouseID, "tenant-001", code, name)
	warehouse.LotStockLocation = domain.Location{
		LocationID:  "LOC-" + code + "-STOCK",
		Name:        code + "/Stock",
		Usage:       domain.UsageInternal,
		WarehouseID: warehouseID,
	}
	warehouse.OutputLocation = domain.Location{
		LocationID:  "LOC-" + code + "-OUT",
		Name:        code + "/Output",
		Usage:       domain.UsageInternal,
		WarehouseID: warehouseID,
	}
	warehouse.OperationTypes = []domain.OperationType{
		{OperationTypeID: "OT-" + code + "-IN", Name: code + " Receipts", Code: domain.OperationIncoming, SequenceCode: "IN"},
		{OperationTypeID: "OT-" + code + "-INT", Name: code + " Internal Transfers", Code: domain.OperationInternal, SequenceCode: "INT"},
	}
	return warehouse
}

func setupTestRepositories(t *testing.T) (*mongodb.PickingRepository, *mongodb.WarehouseRepository, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	// Get MongoDB client
	client, err := mongoContainer.GetClient(ctx)
	require.NoError(t, err)

	// Create database and repositories
	db := client.Database("wms_transfers_test")
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTransfers)
	pickingRepo := mongodb.NewPickingRepository(db, eventFactory)
	warehouseRepo := mongodb.NewWarehouseRepository(db)

	// Cleanup function
	cleanup := func() {
		client.Disconnect(ctx)
		mongoContainer.Close(ctx)
	}

	return pickingRepo, warehouseRepo, cleanup
}

func TestPickingRepository_Save(t *testing.T) {
	repo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Save new picking", func(t *testing.T) {
		picking := createTestPicking("PICK-0001", "WH1/INT/00001")

		err := repo.Save(ctx, picking)
		assert.NoError(t, err)

		found, err := repo.FindByID(ctx, "PICK-0001")
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "PICK-0001", found.PickingID)
		assert.Equal(t, "WH-001", found.WarehouseID)
		assert.Equal(t, "OT-WH1-INT", found.OperationTypeID)
		assert.Equal(t, domain.StateDraft, found.State)
		require.Len(t, found.Moves, 2)

		// Decimal quantities must survive the BSON round-trip exactly
		assert.True(t, found.Moves[0].Quantity.Equal(decimal.NewFromInt(5)),
			"expected quantity 5, got %s", found.Moves[0].Quantity)
		assert.True(t, found.Moves[1].Quantity.Equal(decimal.RequireFromString("2.5")),
			"expected quantity 2.5, got %s", found.Moves[1].Quantity)
		assert.NotEmpty(t, found.Moves[0].MoveID)
	})

	t.Run("Update existing picking", func(t *testing.T) {
		picking := createTestPicking("PICK-0002", "WH1/INT/00002")
		require.NoError(t, repo.Save(ctx, picking))

		require.NoError(t, picking.Confirm())
		require.NoError(t, repo.Save(ctx, picking))

		found, err := repo.FindByID(ctx, "PICK-0002")
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, domain.StateConfirmed, found.State)
		for _, move := range found.Moves {
			assert.Equal(t, domain.StateConfirmed, move.State)
		}
	})
}

func TestPickingRepository_SaveAll(t *testing.T) {
	repo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Save a chain atomically", func(t *testing.T) {
		first := createTestPicking("PICK-0010", "WH1/INT/00010")
		second := createTestPicking("PICK-0011", "WH1/OUT/00011")
		second.PrevPickingIDs = []string{first.PickingID}
		first.NextPickingIDs = []string{second.PickingID}

		err := repo.SaveAll(ctx, []*domain.Picking{first, second})
		assert.NoError(t, err)

		found, err := repo.FindByIDs(ctx, []string{"PICK-0010", "PICK-0011"})
		assert.NoError(t, err)
		assert.Len(t, found, 2)

		// Domain events end up in the outbox in the same transaction
		events, err := repo.GetOutboxRepository().FindUnpublished(ctx, 10)
		assert.NoError(t, err)
		require.Len(t, events, 2)
		for _, event := range events {
			assert.Equal(t, kafka.Topics.TransfersEvents, event.Topic)
			assert.Equal(t, "Picking", event.AggregateType)
			assert.Equal(t, cloudevents.TransferCreated, event.EventType)

			ce, err := event.ToCloudEvent()
			require.NoError(t, err)
			assert.Equal(t, cloudevents.TransferCreated, ce.Type)
			assert.Equal(t, cloudevents.SourceTransfers, ce.Source)
		}

		// Aggregates hand their events off exactly once
		assert.Empty(t, first.GetDomainEvents())
		assert.Empty(t, second.GetDomainEvents())
	})

	t.Run("Empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.SaveAll(ctx, nil))
		assert.NoError(t, repo.SaveAll(ctx, []*domain.Picking{}))
	})
}

func TestPickingRepository_FindByID(t *testing.T) {
	repo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Find existing picking", func(t *testing.T) {
		picking := createTestPicking("PICK-0020", "WH1/INT/00020")
		require.NoError(t, repo.Save(ctx, picking))

		found, err := repo.FindByID(ctx, "PICK-0020")
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "PICK-0020", found.PickingID)
	})

	t.Run("Find non-existent picking", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "PICK-9999")
		assert.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPickingRepository_FindByWarehouse(t *testing.T) {
	repo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	first := createTestPicking("PICK-0030", "WH1/INT/00030")
	second := createTestPicking("PICK-0031", "WH1/INT/00031")
	require.NoError(t, second.Cancel("fixture"))
	third := createTestPicking("PICK-0032", "WH2/INT/00032")
	third.WarehouseID = "WH-002"

	require.NoError(t, repo.SaveAll(ctx, []*domain.Picking{first, second, third}))

	t.Run("Filter by warehouse", func(t *testing.T) {
		pickings, err := repo.FindByWarehouse(ctx, "WH-001", nil, 0)
		assert.NoError(t, err)
		assert.Len(t, pickings, 2)
		for _, picking := range pickings {
			assert.Equal(t, "WH-001", picking.WarehouseID)
		}
	})

	t.Run("Filter by warehouse and state", func(t *testing.T) {
		pickings, err := repo.FindByWarehouse(ctx, "WH-001", []domain.State{domain.StateCancelled}, 10)
		assert.NoError(t, err)
		require.Len(t, pickings, 1)
		assert.Equal(t, "PICK-0031", pickings[0].PickingID)
	})

	t.Run("Empty warehouse matches all", func(t *testing.T) {
		pickings, err := repo.FindByWarehouse(ctx, "", nil, 0)
		assert.NoError(t, err)
		assert.Len(t, pickings, 3)
	})

	t.Run("Limit caps the result", func(t *testing.T) {
		pickings, err := repo.FindByWarehouse(ctx, "", nil, 2)
		assert.NoError(t, err)
		assert.Len(t, pickings, 2)
	})
}

func TestPickingRepository_UpsertSnapshot(t *testing.T) {
	repo, _, cleanup := setupTestRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	picking := createTestPicking("PICK-0040", "WH1/INT/00040")
	require.NoError(t, repo.UpsertSnapshot(ctx, picking))

	found, err := repo.FindByID(ctx, "PICK-0040")
	assert.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "WH1/INT/00040", found.Name)

	// Snapshots reflect events that already happened elsewhere, so the
	// outbox stays empty
	events, err := repo.GetOutboxRepository().FindUnpublished(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, events)

	// Replacing keeps a single document per picking
	picking.Name = "WH1/INT/00040-renamed"
	require.NoError(t, repo.UpsertSnapshot(ctx, picking))

	all, err := repo.FindByIDs(ctx, []string{"PICK-0040"})
	assert.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "WH1/INT/00040-renamed", all[0].Name)
}

func TestWarehouseRepository(t *testing.T) {
	_, repo, cleanup := setupTestRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Save and find warehouse", func(t *testing.T) {
		warehouse := createTestWarehouse("WH-001", "WH1", "Main Warehouse")

		err := repo.Save(ctx, warehouse)
		assert.NoError(t, err)

		found, err := repo.FindByID(ctx, "WH-001")
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "WH1", found.Code)
		assert.True(t, found.Active)
		assert.Len(t, found.OperationTypes, 2)
		assert.Equal(t, "LOC-WH1-STOCK", found.LotStockLocation.LocationID)
	})

	t.Run("Find non-existent warehouse", func(t *testing.T) {
		found, err := repo.FindByID(ctx, "WH-999")
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("FindAll sorts by code", func(t *testing.T) {
		second := createTestWarehouse("WH-002", "WH2", "Secondary Warehouse")
		require.NoError(t, repo.Save(ctx, second))

		warehouses, err := repo.FindAll(ctx)
		assert.NoError(t, err)
		require.Len(t, warehouses, 2)
		assert.Equal(t, "WH1", warehouses[0].Code)
		assert.Equal(t, "WH2", warehouses[1].Code)
	})

	t.Run("UpsertSnapshot replaces in place", func(t *testing.T) {
		warehouse := createTestWarehouse("WH-002", "WH2", "Secondary Warehouse")
		warehouse.Name = "Overflow Warehouse"
		require.NoError(t, repo.UpsertSnapshot(ctx, warehouse))

		found, err := repo.FindByID(ctx, "WH-002")
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Overflow Warehouse", found.Name)

		warehouses, err := repo.FindAll(ctx)
		assert.NoError(t, err)
		assert.Len(t, warehouses, 2)
	})
}
