package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// TransferCreatedEvent is published when a picking is created
type TransferCreatedEvent struct {
	PickingID   string    `json:"pickingId"`
	Name        string    `json:"name"`
	WarehouseID string    `json:"warehouseId"`
	MoveCount   int       `json:"moveCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *TransferCreatedEvent) EventType() string     { return "wms.transfer.created" }
func (e *TransferCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// TransferCancelledEvent is published when a picking is cancelled
type TransferCancelledEvent struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	Reason      string    `json:"reason,omitempty"`
	MoveCount   int       `json:"moveCount"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *TransferCancelledEvent) EventType() string     { return "wms.transfer.cancelled" }
func (e *TransferCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// TransferReturnedToDraftEvent is published when a cancelled picking is
// returned to draft
type TransferReturnedToDraftEvent struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	ReturnedAt  time.Time `json:"returnedAt"`
}

func (e *TransferReturnedToDraftEvent) EventType() string     { return "wms.transfer.returned-to-draft" }
func (e *TransferReturnedToDraftEvent) OccurredAt() time.Time { return e.ReturnedAt }

// TransferConfirmedEvent is published when a draft picking is confirmed
type TransferConfirmedEvent struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	State       string    `json:"state"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

func (e *TransferConfirmedEvent) EventType() string     { return "wms.transfer.confirmed" }
func (e *TransferConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// TransferReservedEvent is published when moves of a picking are reserved
type TransferReservedEvent struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	MoveCount   int       `json:"moveCount"`
	ReservedAt  time.Time `json:"reservedAt"`
}

func (e *TransferReservedEvent) EventType() string     { return "wms.transfer.reserved" }
func (e *TransferReservedEvent) OccurredAt() time.Time { return e.ReservedAt }

// TransferWarehouseChangedEvent is published when a picking is rewritten
// onto another warehouse
type TransferWarehouseChangedEvent struct {
	PickingID       string    `json:"pickingId"`
	FromWarehouseID string    `json:"fromWarehouseId"`
	ToWarehouseID   string    `json:"toWarehouseId"`
	OperationTypeID string    `json:"operationTypeId"`
	ChangedAt       time.Time `json:"changedAt"`
}

func (e *TransferWarehouseChangedEvent) EventType() string     { return "wms.transfer.warehouse-changed" }
func (e *TransferWarehouseChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// TransferSerialsPropagatedEvent is published when lots or serials are
// copied onto the chained moves of a picking
type TransferSerialsPropagatedEvent struct {
	PickingID    string    `json:"pickingId"`
	MoveCount    int       `json:"moveCount"`
	PropagatedAt time.Time `json:"propagatedAt"`
}

func (e *TransferSerialsPropagatedEvent) EventType() string     { return "wms.transfer.serials-propagated" }
func (e *TransferSerialsPropagatedEvent) OccurredAt() time.Time { return e.PropagatedAt }
