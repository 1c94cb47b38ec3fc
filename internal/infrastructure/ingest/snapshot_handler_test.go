package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

type capturePickingRepo struct {
	snapshot *domain.Picking
	err      error
}

func (c *capturePickingRepo) Save(ctx context.Context, picking *domain.Picking) error { return nil }
func (c *capturePickingRepo) SaveAll(ctx context.Context, pickings []*domain.Picking) error {
	return nil
}
func (c *capturePickingRepo) FindByID(ctx context.Context, pickingID string) (*domain.Picking, error) {
	return nil, nil
}
func (c *capturePickingRepo) FindByIDs(ctx context.Context, pickingIDs []string) ([]*domain.Picking, error) {
	return nil, nil
}
func (c *capturePickingRepo) FindByWarehouse(ctx context.Context, warehouseID string, states []domain.State, limit int) ([]*domain.Picking, error) {
	return nil, nil
}
func (c *capturePickingRepo) FindByState(ctx context.Context, state domain.State, limit int) ([]*domain.Picking, error) {
	return nil, nil
}
func (c *capturePickingRepo) UpsertSnapshot(ctx context.Context, picking *domain.Picking) error {
	if c.err != nil {
		return c.err
	}
	c.snapshot = picking
	return nil
}
func (c *capturePickingRepo) Delete(ctx context.Context, pickingID string) error { return nil }

type captureWarehouseRepo struct {
	snapshot *domain.Warehouse
	err      error
}

func (c *captureWarehouseRepo) Save(ctx context.Context, warehouse *domain.Warehouse) error {
	return nil
}
func (c *captureWarehouseRepo) FindByID(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	return nil, nil
}
func (c *captureWarehouseRepo) FindAll(ctx context.Context) ([]*domain.Warehouse, error) {
	return nil, nil
}
func (c *captureWarehouseRepo) UpsertSnapshot(ctx context.Context, warehouse *domain.Warehouse) error {
	if c.err != nil {
		return c.err
	}
	c.snapshot = warehouse
	return nil
}

func newTestHandler() (*SnapshotHandler, *capturePickingRepo, *captureWarehouseRepo) {
	pickings := &capturePickingRepo{}
	warehouses := &captureWarehouseRepo{}
	logger := logging.New(logging.DefaultConfig("test"))
	return NewSnapshotHandler(pickings, warehouses, logger), pickings, warehouses
}

// snapshotEvent builds a CloudEvent whose data went through JSON the way
// a consumed message would
func snapshotEvent(t *testing.T, eventType string, payload interface{}) *cloudevents.WMSCloudEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	var data interface{}
	require.NoError(t, json.Unmarshal(raw, &data))
	return &cloudevents.WMSCloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      "wms-warehouse-service",
		ID:          "evt-0001",
		Data:        data,
	}
}

func TestSnapshotHandler_HandleTransferSnapshot(t *testing.T) {
	t.Run("applies a transfer snapshot", func(t *testing.T) {
		handler, pickings, _ := newTestHandler()
		event := snapshotEvent(t, TransferSnapshotEventType, map[string]interface{}{
			"pickingId":   "PICK-100",
			"name":        "WH1/PICK/00100",
			"tenantId":    "TENANT-001",
			"warehouseId": "WH-001",
			"state":       "assigned",
			"moves": []map[string]interface{}{{
				"moveId":        "MOVE-100",
				"sku":           "SKU-001",
				"quantity":      5,
				"reservedQty":   5,
				"tracking":      "serial",
				"state":         "assigned",
				"procureMethod": "make_to_stock",
			}},
			"nextPickingIds": []string{"PICK-101"},
		})

		err := handler.HandleTransferSnapshot(context.Background(), event)

		require.NoError(t, err)
		require.NotNil(t, pickings.snapshot)
		assert.Equal(t, "PICK-100", pickings.snapshot.PickingID)
		assert.Equal(t, domain.StateAssigned, pickings.snapshot.State)
		assert.Equal(t, []string{"PICK-101"}, pickings.snapshot.NextPickingIDs)
		require.Len(t, pickings.snapshot.Moves, 1)
		move := pickings.snapshot.Moves[0]
		assert.Equal(t, domain.StateAssigned, move.State)
		assert.Equal(t, domain.TrackingSerial, move.Tracking)
		assert.True(t, move.Quantity.Equal(move.ReservedQty))
	})

	t.Run("drops a snapshot with an unknown state", func(t *testing.T) {
		handler, pickings, _ := newTestHandler()
		event := snapshotEvent(t, TransferSnapshotEventType, map[string]interface{}{
			"pickingId": "PICK-100",
			"state":     "parked",
		})

		err := handler.HandleTransferSnapshot(context.Background(), event)

		require.NoError(t, err)
		assert.Nil(t, pickings.snapshot)
	})

	t.Run("drops a snapshot without a picking ID", func(t *testing.T) {
		handler, pickings, _ := newTestHandler()
		event := snapshotEvent(t, TransferSnapshotEventType, map[string]interface{}{
			"state": "draft",
		})

		err := handler.HandleTransferSnapshot(context.Background(), event)

		require.NoError(t, err)
		assert.Nil(t, pickings.snapshot)
	})

	t.Run("returns storage failures so the message is redelivered", func(t *testing.T) {
		handler, pickings, _ := newTestHandler()
		pickings.err = errors.New("connection reset")
		event := snapshotEvent(t, TransferSnapshotEventType, map[string]interface{}{
			"pickingId": "PICK-100",
			"state":     "draft",
		})

		err := handler.HandleTransferSnapshot(context.Background(), event)

		require.Error(t, err)
		assert.ErrorContains(t, err, "PICK-100")
	})
}

func TestSnapshotHandler_HandleWarehouseSnapshot(t *testing.T) {
	t.Run("applies a warehouse snapshot", func(t *testing.T) {
		handler, _, warehouses := newTestHandler()
		event := snapshotEvent(t, WarehouseSnapshotEventType, map[string]interface{}{
			"warehouseId": "WH-002",
			"tenantId":    "TENANT-001",
			"code":        "WH2",
			"name":        "Northside",
			"active":      true,
			"lotStockLocation": map[string]interface{}{
				"locationId": "LOC-WH2-STOCK", "usage": "internal", "warehouseId": "WH-002",
			},
			"operationTypes": []map[string]interface{}{{
				"operationTypeId": "OT-WH2-PICK",
				"name":            "WH2: Pick",
				"code":            "internal",
				"sequenceCode":    "PICK",
				"defaultDestLocation": map[string]interface{}{
					"locationId": "LOC-WH2-PACK", "usage": "internal", "warehouseId": "WH-002",
				},
			}},
		})

		err := handler.HandleWarehouseSnapshot(context.Background(), event)

		require.NoError(t, err)
		require.NotNil(t, warehouses.snapshot)
		assert.Equal(t, "WH-002", warehouses.snapshot.WarehouseID)
		assert.True(t, warehouses.snapshot.Active)
		assert.Equal(t, "LOC-WH2-STOCK", warehouses.snapshot.LotStockLocation.LocationID)
		require.Len(t, warehouses.snapshot.OperationTypes, 1)
		opType := warehouses.snapshot.OperationTypes[0]
		assert.Equal(t, "PICK", opType.SequenceCode)
		require.NotNil(t, opType.DefaultDestLocation)
		assert.Equal(t, "LOC-WH2-PACK", opType.DefaultDestLocation.LocationID)
	})

	t.Run("drops a snapshot without a warehouse ID", func(t *testing.T) {
		handler, _, warehouses := newTestHandler()
		event := snapshotEvent(t, WarehouseSnapshotEventType, map[string]interface{}{
			"code": "WH2",
		})

		err := handler.HandleWarehouseSnapshot(context.Background(), event)

		require.NoError(t, err)
		assert.Nil(t, warehouses.snapshot)
	})

	t.Run("returns storage failures so the message is redelivered", func(t *testing.T) {
		handler, _, warehouses := newTestHandler()
		warehouses.err = errors.New("connection reset")
		event := snapshotEvent(t, WarehouseSnapshotEventType, map[string]interface{}{
			"warehouseId": "WH-002",
		})

		err := handler.HandleWarehouseSnapshot(context.Background(), event)

		require.Error(t, err)
		assert.ErrorContains(t, err, "WH-002")
	})
}
