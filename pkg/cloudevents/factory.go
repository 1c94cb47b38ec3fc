package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for transfer domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateTransferCreatedEvent creates a TransferCreated event
func (f *EventFactory) CreateTransferCreatedEvent(
	ctx context.Context,
	pickingID string,
	name string,
	warehouseID string,
	moveCount int,
	createdAt time.Time,
) *WMSCloudEvent {
	data := TransferCreatedData{
		PickingID:   pickingID,
		Name:        name,
		WarehouseID: warehouseID,
		MoveCount:   moveCount,
		CreatedAt:   createdAt,
	}
	return f.CreateEvent(ctx, TransferCreated, "picking/"+pickingID, data)
}

// CreateTransferCancelledEvent creates a TransferCancelled event
func (f *EventFactory) CreateTransferCancelledEvent(
	ctx context.Context,
	pickingID string,
	warehouseID string,
	reason string,
	moveCount int,
	cancelledAt time.Time,
) *WMSCloudEvent {
	data := TransferCancelledData{
		PickingID:   pickingID,
		WarehouseID: warehouseID,
		Reason:      reason,
		MoveCount:   moveCount,
		CancelledAt: cancelledAt,
	}
	return f.CreateEvent(ctx, TransferCancelled, "picking/"+pickingID, data)
}

// CreateTransferReturnedToDraftEvent creates a TransferReturnedToDraft event
func (f *EventFactory) CreateTransferReturnedToDraftEvent(
	ctx context.Context,
	pickingID string,
	warehouseID string,
	returnedAt time.Time,
) *WMSCloudEvent {
	data := TransferReturnedToDraftData{
		PickingID:   pickingID,
		WarehouseID: warehouseID,
		ReturnedAt:  returnedAt,
	}
	return f.CreateEvent(ctx, TransferReturnedToDraft, "picking/"+pickingID, data)
}

// CreateTransferConfirmedEvent creates a TransferConfirmed event
func (f *EventFactory) CreateTransferConfirmedEvent(
	ctx context.Context,
	pickingID string,
	warehouseID string,
	state string,
	confirmedAt time.Time,
) *WMSCloudEvent {
	data := TransferConfirmedData{
		PickingID:   pickingID,
		WarehouseID: warehouseID,
		State:       state,
		ConfirmedAt: confirmedAt,
	}
	return f.CreateEvent(ctx, TransferConfirmed, "picking/"+pickingID, data)
}

// CreateTransferReservedEvent creates a TransferReserved event
func (f *EventFactory) CreateTransferReservedEvent(
	ctx context.Context,
	pickingID string,
	warehouseID string,
	moveCount int,
	reservedAt time.Time,
) *WMSCloudEvent {
	data := TransferReservedData{
		PickingID:   pickingID,
		WarehouseID: warehouseID,
		MoveCount:   moveCount,
		ReservedAt:  reservedAt,
	}
	return f.CreateEvent(ctx, TransferReserved, "picking/"+pickingID, data)
}

// CreateWarehouseChangedEvent creates a TransferWarehouseChanged event
func (f *EventFactory) CreateWarehouseChangedEvent(
	ctx context.Context,
	pickingID string,
	fromWarehouseID string,
	toWarehouseID string,
	operationTypeID string,
	changedAt time.Time,
) *WMSCloudEvent {
	data := TransferWarehouseChangedData{
		PickingID:       pickingID,
		FromWarehouseID: fromWarehouseID,
		ToWarehouseID:   toWarehouseID,
		OperationTypeID: operationTypeID,
		ChangedAt:       changedAt,
	}
	event := f.CreateEvent(ctx, TransferWarehouseChanged, "picking/"+pickingID, data)
	event.WarehouseID = toWarehouseID
	return event
}

// CreateSerialsPropagatedEvent creates a TransferSerialsPropagated event
func (f *EventFactory) CreateSerialsPropagatedEvent(
	ctx context.Context,
	pickingID string,
	moveCount int,
	propagatedAt time.Time,
) *WMSCloudEvent {
	data := TransferSerialsPropagatedData{
		PickingID:    pickingID,
		MoveCount:    moveCount,
		PropagatedAt: propagatedAt,
	}
	return f.CreateEvent(ctx, TransferSerialsPropagated, "picking/"+pickingID, data)
}

// CreateTransferSnapshotEvent creates a TransferSnapshotUpdated event
func (f *EventFactory) CreateTransferSnapshotEvent(
	ctx context.Context,
	snapshot TransferSnapshotData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, TransferSnapshotUpdated, "picking/"+snapshot.PickingID, snapshot)
	event.TenantID = snapshot.TenantID
	event.WarehouseID = snapshot.WarehouseID
	return event
}

// CreateWarehouseSnapshotEvent creates a WarehouseSnapshotUpdated event
func (f *EventFactory) CreateWarehouseSnapshotEvent(
	ctx context.Context,
	snapshot WarehouseSnapshotData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, WarehouseSnapshotUpdated, "warehouse/"+snapshot.WarehouseID, snapshot)
	event.TenantID = snapshot.TenantID
	event.WarehouseID = snapshot.WarehouseID
	return event
}
