package events_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/contracts/asyncapi"
)

const asyncAPISpecPath = "../../../docs/asyncapi.yaml"

func loadEventValidator(t *testing.T) *asyncapi.EventValidator {
	t.Helper()

	absPath, err := filepath.Abs(asyncAPISpecPath)
	require.NoError(t, err)

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		t.Skip("AsyncAPI spec not found - skipping event validation tests")
	}

	specBytes, err := os.ReadFile(absPath)
	require.NoError(t, err)

	validator, err := asyncapi.NewEventValidator(specBytes)
	require.NoError(t, err)

	return validator
}

// validateMarshalled round-trips a factory event through JSON the way the
// outbox publisher ships it, then validates the result against the spec.
func validateMarshalled(t *testing.T, validator *asyncapi.EventValidator, event *cloudevents.WMSCloudEvent) {
	t.Helper()

	eventJSON, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NoError(t, validator.ValidateEventJSON(eventJSON))
}

func TestAsyncAPISpecExists(t *testing.T) {
	absPath, err := filepath.Abs(asyncAPISpecPath)
	require.NoError(t, err)

	_, err = os.Stat(absPath)
	if os.IsNotExist(err) {
		t.Skip("AsyncAPI spec not found - skipping event validation tests")
	}
	require.NoError(t, err)
}

func TestEventValidatorCreation(t *testing.T) {
	validator := loadEventValidator(t)
	assert.NotNil(t, validator)

	eventTypes := validator.GetSupportedEventTypes()
	assert.Len(t, eventTypes, 9)
}

func TestTransferLifecycleEventSchemas(t *testing.T) {
	validator := loadEventValidator(t)
	factory := cloudevents.NewEventFactory(cloudevents.SourceTransfers)
	ctx := context.Background()

	t.Run("TransferCreated", func(t *testing.T) {
		event := factory.CreateTransferCreatedEvent(ctx, "PICK-0001", "WH1/INT/00042", "WH-001", 3, time.Now().UTC())
		validateMarshalled(t, validator, event)
	})

	t.Run("TransferCancelled", func(t *testing.T) {
		event := factory.CreateTransferCancelledEvent(ctx, "PICK-0001", "WH-001", "stock damaged on receipt", 3, time.Now().UTC())
		validateMarshalled(t, validator, event)
	})

	t.Run("TransferCancelled without reason", func(t *testing.T) {
		event := factory.CreateTransferCancelledEvent(ctx, "PICK-0001", "WH-001", "", 3, time.Now().UTC())
		validateMarshalled(t, validator, event)
	})

	t.Run("TransferReturnedToDraft", func(t *testing.T) {
		event := factory.CreateTransferReturnedToDraftEvent(ctx, "PICK-0001", "WH-001", time.Now().UTC())
		validateMarshalled(t, validator, event)
	})

	t.Run("TransferConfirmed", func(t *testing.T) {
		event := factory.CreateTransferConfirmedEvent(ctx, "PICK-0001", "WH-001", "waiting", time.Now().UTC())
		validateMarshalled(t, validator, event)
	})

	t.Run("TransferReserved", func(t *testing.T) {
		event := factory.CreateTransferReservedEvent(ctx, "PICK-0001", "WH-001", 2, time.Now().UTC())
		validateMarshalled(t, validator, event)
	})
}

func TestChangeWarehouseEventSchemas(t *testing.T) {
	validator := loadEventValidator(t)
	factory := cloudevents.NewEventFactory(cloudevents.SourceTransfers)
	ctx := context.Background()

	t.Run("TransferWarehouseChanged", func(t *testing.T) {
		event := factory.CreateWarehouseChangedEvent(ctx, "PICK-0001", "WH-001", "WH-002", "OT-WH2-INT", time.Now().UTC())
		validateMarshalled(t, validator, event)
	})

	t.Run("TransferSerialsPropagated", func(t *testing.T) {
		event := factory.CreateSerialsPropagatedEvent(ctx, "PICK-0001", 2, time.Now().UTC())
		validateMarshalled(t, validator, event)
	})
}

func TestSnapshotEventSchemas(t *testing.T) {
	validator := loadEventValidator(t)
	factory := cloudevents.NewEventFactory(cloudevents.SourceERPBridge)
	ctx := context.Background()

	t.Run("TransferSnapshot", func(t *testing.T) {
		stock := cloudevents.LocationRef{LocationID: "LOC-WH1-STOCK", Name: "WH1/Stock", Usage: "internal", WarehouseID: "WH-001"}
		output := cloudevents.LocationRef{LocationID: "LOC-WH1-OUT", Name: "WH1/Output", Usage: "internal", WarehouseID: "WH-001"}

		snapshot := cloudevents.TransferSnapshotData{
			PickingID:       "PICK-1001",
			Name:            "WH1/PICK/01001",
			TenantID:        "tenant-001",
			WarehouseID:     "WH-001",
			OperationTypeID: "OT-WH1-PICK",
			OperationKind:   "internal",
			State:           "waiting",
			SourceLocation:  stock,
			DestLocation:    output,
			Moves: []cloudevents.MoveSnapshot{
				{
					MoveID:         "MOVE-1001-1",
					SKU:            "SKU-001",
					ProductName:    "Widget",
					Quantity:       "5",
					Tracking:       "serial",
					State:          "waiting",
					ProcureMethod:  "make_to_order",
					SourceLocation: stock,
					DestLocation:   output,
					OrigMoveIDs:    []string{"MOVE-0900-1"},
				},
				{
					MoveID:         "MOVE-1001-2",
					SKU:            "SKU-002",
					ProductName:    "Gadget",
					Quantity:       "2.5",
					Tracking:       "lot",
					State:          "waiting",
					ProcureMethod:  "make_to_stock",
					SourceLocation: stock,
					DestLocation:   output,
				},
			},
			PrevPickingIDs: []string{"PICK-0900"},
		}

		event := factory.CreateTransferSnapshotEvent(ctx, snapshot)
		validateMarshalled(t, validator, event)
	})

	t.Run("WarehouseSnapshot", func(t *testing.T) {
		snapshot := cloudevents.WarehouseSnapshotData{
			WarehouseID:      "WH-002",
			TenantID:         "tenant-001",
			Code:             "WH2",
			Name:             "Secondary Warehouse",
			Active:           true,
			LotStockLocation: cloudevents.LocationRef{LocationID: "LOC-WH2-STOCK", Name: "WH2/Stock", Usage: "internal", WarehouseID: "WH-002"},
			InputLocation:    cloudevents.LocationRef{LocationID: "LOC-WH2-IN", Name: "WH2/Input", Usage: "internal", WarehouseID: "WH-002"},
			OutputLocation:   cloudevents.LocationRef{LocationID: "LOC-WH2-OUT", Name: "WH2/Output", Usage: "internal", WarehouseID: "WH-002"},
			PackLocation:     cloudevents.LocationRef{LocationID: "LOC-WH2-PACK", Name: "WH2/Packing", Usage: "internal", WarehouseID: "WH-002"},
			DeliverySteps:    "pick_ship",
			ReceptionSteps:   "two_steps",
			OperationTypes: []cloudevents.OperationTypeSnapshot{
				{OperationTypeID: "OT-WH2-IN", Name: "WH2 Receipts", Code: "incoming", SequenceCode: "IN"},
				{OperationTypeID: "OT-WH2-INT", Name: "WH2 Internal Transfers", Code: "internal", SequenceCode: "INT"},
			},
		}

		event := factory.CreateWarehouseSnapshotEvent(ctx, snapshot)
		validateMarshalled(t, validator, event)
	})
}

func TestAllEventTypesHaveSchemas(t *testing.T) {
	validator := loadEventValidator(t)

	expectedEventTypes := []string{
		cloudevents.TransferCreated,
		cloudevents.TransferCancelled,
		cloudevents.TransferReturnedToDraft,
		cloudevents.TransferConfirmed,
		cloudevents.TransferReserved,
		cloudevents.TransferWarehouseChanged,
		cloudevents.TransferSerialsPropagated,
		cloudevents.TransferSnapshotUpdated,
		cloudevents.WarehouseSnapshotUpdated,
	}

	for _, eventType := range expectedEventTypes {
		assert.True(t, validator.HasSchema(eventType), "no schema registered for %s", eventType)
	}
}

func TestEventValidationFailures(t *testing.T) {
	validator := loadEventValidator(t)

	t.Run("missing required field", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion: "1.0",
			Type:        cloudevents.TransferCreated,
			Source:      cloudevents.SourceTransfers,
			ID:          "evt-123",
			Time:        time.Now().Format(time.RFC3339),
			Data: map[string]interface{}{
				"name":        "WH1/INT/00042",
				"warehouseId": "WH-001",
				"moveCount":   3,
				"createdAt":   time.Now().UTC().Format(time.RFC3339),
			},
		}

		err := validator.ValidateEvent(&event)
		assert.Error(t, err)
	})

	t.Run("state outside the enum", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion: "1.0",
			Type:        cloudevents.TransferConfirmed,
			Source:      cloudevents.SourceTransfers,
			ID:          "evt-124",
			Time:        time.Now().Format(time.RFC3339),
			Data: map[string]interface{}{
				"pickingId":   "PICK-0001",
				"warehouseId": "WH-001",
				"state":       "shipped",
				"confirmedAt": time.Now().UTC().Format(time.RFC3339),
			},
		}

		err := validator.ValidateEvent(&event)
		assert.Error(t, err)
	})

	t.Run("unregistered event type", func(t *testing.T) {
		event := asyncapi.CloudEvent{
			SpecVersion: "1.0",
			Type:        "wms.transfer.unknown",
			Source:      cloudevents.SourceTransfers,
			ID:          "evt-125",
			Data:        map[string]interface{}{},
		}

		err := validator.ValidateEvent(&event)
		assert.Error(t, err)
	})

	t.Run("malformed time", func(t *testing.T) {
		err := validator.ValidateEventJSON([]byte(`{
			"specversion": "1.0",
			"type": "wms.transfer.created",
			"source": "/wms/transfer-service",
			"id": "evt-126",
			"time": "yesterday",
			"data": {}
		}`))
		assert.Error(t, err)
	})
}

func TestRegisterCustomSchema(t *testing.T) {
	validator := loadEventValidator(t)

	customSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"testField": map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"testField"},
	}

	err := validator.RegisterSchema("custom.test.event", customSchema)
	require.NoError(t, err)

	assert.True(t, validator.HasSchema("custom.test.event"))

	event := asyncapi.CloudEvent{
		SpecVersion: "1.0",
		Type:        "custom.test.event",
		Source:      "/wms/test",
		ID:          "test-123",
		Data: map[string]interface{}{
			"testField": "test value",
		},
	}

	err = validator.ValidateEvent(&event)
	require.NoError(t, err)
}
