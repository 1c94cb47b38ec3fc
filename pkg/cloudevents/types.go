package cloudevents

import (
	"time"
)

// EventType constants for transfer domain events
const (
	// Transfer lifecycle events
	TransferCreated         = "wms.transfer.created"
	TransferCancelled       = "wms.transfer.cancelled"
	TransferReturnedToDraft = "wms.transfer.returned-to-draft"
	TransferConfirmed       = "wms.transfer.confirmed"
	TransferReserved        = "wms.transfer.reserved"

	// Change warehouse events
	TransferWarehouseChanged  = "wms.transfer.warehouse-changed"
	TransferSerialsPropagated = "wms.transfer.serials-propagated"

	// Snapshot events consumed from upstream systems
	TransferSnapshotUpdated  = "wms.transfer.snapshot-updated"
	WarehouseSnapshotUpdated = "wms.warehouse.snapshot-updated"
)

// Source constants for event sources
const (
	SourceTransfers = "/wms/transfer-service"
	SourceERPBridge = "/wms/erp-bridge"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	TenantID      string `json:"wmstenantid,omitempty"`
	WarehouseID   string `json:"wmswarehouseid,omitempty"`

	// W3C distributed tracing extensions
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// TransferCreatedData represents the data payload for TransferCreated event
type TransferCreatedData struct {
	PickingID   string    `json:"pickingId"`
	Name        string    `json:"name"`
	WarehouseID string    `json:"warehouseId"`
	MoveCount   int       `json:"moveCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TransferCancelledData represents the data payload for TransferCancelled event
type TransferCancelledData struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	Reason      string    `json:"reason,omitempty"`
	MoveCount   int       `json:"moveCount"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// TransferReturnedToDraftData represents the data payload for TransferReturnedToDraft event
type TransferReturnedToDraftData struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	ReturnedAt  time.Time `json:"returnedAt"`
}

// TransferConfirmedData represents the data payload for TransferConfirmed event
type TransferConfirmedData struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	State       string    `json:"state"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// TransferReservedData represents the data payload for TransferReserved event
type TransferReservedData struct {
	PickingID   string    `json:"pickingId"`
	WarehouseID string    `json:"warehouseId"`
	MoveCount   int       `json:"moveCount"`
	ReservedAt  time.Time `json:"reservedAt"`
}

// TransferWarehouseChangedData represents the data payload for TransferWarehouseChanged event
type TransferWarehouseChangedData struct {
	PickingID       string    `json:"pickingId"`
	FromWarehouseID string    `json:"fromWarehouseId"`
	ToWarehouseID   string    `json:"toWarehouseId"`
	OperationTypeID string    `json:"operationTypeId"`
	ChangedAt       time.Time `json:"changedAt"`
}

// TransferSerialsPropagatedData represents the data payload for TransferSerialsPropagated event
type TransferSerialsPropagatedData struct {
	PickingID    string    `json:"pickingId"`
	MoveCount    int       `json:"moveCount"`
	PropagatedAt time.Time `json:"propagatedAt"`
}

// LocationRef is an embedded location reference in snapshot payloads
type LocationRef struct {
	LocationID  string `json:"locationId"`
	Name        string `json:"name,omitempty"`
	Usage       string `json:"usage"`
	WarehouseID string `json:"warehouseId,omitempty"`
}

// MoveSnapshot represents one move line inside a transfer snapshot
type MoveSnapshot struct {
	MoveID          string      `json:"moveId"`
	SKU             string      `json:"sku"`
	ProductName     string      `json:"productName,omitempty"`
	Quantity        string      `json:"quantity"`
	Tracking        string      `json:"tracking"`
	LotSerial       string      `json:"lotSerial,omitempty"`
	State           string      `json:"state"`
	ProcureMethod   string      `json:"procureMethod"`
	PropagateCancel bool        `json:"propagateCancel"`
	Scrapped        bool        `json:"scrapped,omitempty"`
	SourceLocation  LocationRef `json:"sourceLocation"`
	DestLocation    LocationRef `json:"destLocation"`
	OrigMoveIDs     []string    `json:"origMoveIds,omitempty"`
	DestMoveIDs     []string    `json:"destMoveIds,omitempty"`
}

// TransferSnapshotData represents the data payload for TransferSnapshotUpdated event
type TransferSnapshotData struct {
	PickingID       string         `json:"pickingId"`
	Name            string         `json:"name"`
	TenantID        string         `json:"tenantId"`
	WarehouseID     string         `json:"warehouseId"`
	OperationTypeID string         `json:"operationTypeId"`
	OperationKind   string         `json:"operationKind"`
	PartnerID       string         `json:"partnerId,omitempty"`
	State           string         `json:"state"`
	SourceLocation  LocationRef    `json:"sourceLocation"`
	DestLocation    LocationRef    `json:"destLocation"`
	Moves           []MoveSnapshot `json:"moves"`
	PrevPickingIDs  []string       `json:"prevPickingIds,omitempty"`
	NextPickingIDs  []string       `json:"nextPickingIds,omitempty"`
	ScheduledAt     *time.Time     `json:"scheduledAt,omitempty"`
}

// OperationTypeSnapshot represents one operation type inside a warehouse snapshot
type OperationTypeSnapshot struct {
	OperationTypeID       string       `json:"operationTypeId"`
	Name                  string       `json:"name"`
	Code                  string       `json:"code"`
	SequenceCode          string       `json:"sequenceCode"`
	DefaultSourceLocation *LocationRef `json:"defaultSourceLocation,omitempty"`
	DefaultDestLocation   *LocationRef `json:"defaultDestLocation,omitempty"`
}

// WarehouseSnapshotData represents the data payload for WarehouseSnapshotUpdated event
type WarehouseSnapshotData struct {
	WarehouseID      string                  `json:"warehouseId"`
	TenantID         string                  `json:"tenantId"`
	Code             string                  `json:"code"`
	Name             string                  `json:"name"`
	Active           bool                    `json:"active"`
	LotStockLocation LocationRef             `json:"lotStockLocation"`
	InputLocation    LocationRef             `json:"inputLocation"`
	OutputLocation   LocationRef             `json:"outputLocation"`
	PackLocation     LocationRef             `json:"packLocation"`
	DeliverySteps    string                  `json:"deliverySteps"`
	ReceptionSteps   string                  `json:"receptionSteps"`
	OperationTypes   []OperationTypeSnapshot `json:"operationTypes"`
}
