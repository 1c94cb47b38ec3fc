package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// PickingDTO represents a transfer document in responses
type PickingDTO struct {
	PickingID       string      `json:"pickingId"`
	Name            string      `json:"name"`
	TenantID        string      `json:"tenantId"`
	WarehouseID     string      `json:"warehouseId"`
	OperationTypeID string      `json:"operationTypeId"`
	OperationKind   string      `json:"operationKind"`
	PartnerID       string      `json:"partnerId,omitempty"`
	SourceLocation  LocationDTO `json:"sourceLocation"`
	DestLocation    LocationDTO `json:"destLocation"`
	State           string      `json:"state"`
	Moves           []MoveDTO   `json:"moves"`
	PrevPickingIDs  []string    `json:"prevPickingIds,omitempty"`
	NextPickingIDs  []string    `json:"nextPickingIds,omitempty"`
	ScheduledAt     *time.Time  `json:"scheduledAt,omitempty"`
	DoneAt          *time.Time  `json:"doneAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// MoveDTO represents a stock move line in responses
type MoveDTO struct {
	MoveID          string          `json:"moveId"`
	SKU             string          `json:"sku"`
	ProductName     string          `json:"productName"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReservedQty     decimal.Decimal `json:"reservedQty"`
	Tracking        string          `json:"tracking"`
	LotSerial       string          `json:"lotSerial,omitempty"`
	State           string          `json:"state"`
	ProcureMethod   string          `json:"procureMethod"`
	PropagateCancel bool            `json:"propagateCancel"`
	Scrapped        bool            `json:"scrapped"`
	SourceLocation  LocationDTO     `json:"sourceLocation"`
	DestLocation    LocationDTO     `json:"destLocation"`
	OrigMoveIDs     []string        `json:"origMoveIds,omitempty"`
	DestMoveIDs     []string        `json:"destMoveIds,omitempty"`
}

// LocationDTO represents a stock location reference
type LocationDTO struct {
	LocationID  string `json:"locationId"`
	Name        string `json:"name"`
	Usage       string `json:"usage"`
	WarehouseID string `json:"warehouseId,omitempty"`
}

// WarehouseDTO represents a warehouse in responses
type WarehouseDTO struct {
	WarehouseID      string             `json:"warehouseId"`
	TenantID         string             `json:"tenantId"`
	Code             string             `json:"code"`
	Name             string             `json:"name"`
	Active           bool               `json:"active"`
	LotStockLocation LocationDTO        `json:"lotStockLocation"`
	InputLocation    LocationDTO        `json:"inputLocation"`
	OutputLocation   LocationDTO        `json:"outputLocation"`
	PackLocation     LocationDTO        `json:"packLocation"`
	DeliverySteps    string             `json:"deliverySteps"`
	ReceptionSteps   string             `json:"receptionSteps"`
	OperationTypes   []OperationTypeDTO `json:"operationTypes"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// OperationTypeDTO represents an operation type in responses
type OperationTypeDTO struct {
	OperationTypeID       string       `json:"operationTypeId"`
	Name                  string       `json:"name"`
	Code                  string       `json:"code"`
	SequenceCode          string       `json:"sequenceCode"`
	DefaultSourceLocation *LocationDTO `json:"defaultSourceLocation,omitempty"`
	DefaultDestLocation   *LocationDTO `json:"defaultDestLocation,omitempty"`
}

// CancelToDraftResultDTO reports the outcome of a cancel-to-draft batch
type CancelToDraftResultDTO struct {
	Pickings      []PickingDTO `json:"pickings"`
	CascadedMoves int          `json:"cascadedMoves"`
}

// ChangeWarehouseResultDTO reports the outcome of a warehouse change
type ChangeWarehouseResultDTO struct {
	SourceWarehouseID string       `json:"sourceWarehouseId"`
	TargetWarehouseID string       `json:"targetWarehouseId"`
	Pickings          []PickingDTO `json:"pickings"`
	SerialsApplied    int          `json:"serialsApplied"`
	SerialsMissed     int          `json:"serialsMissed"`
	MovesReserved     int          `json:"movesReserved"`
}

// ChangeWarehousePreviewDTO lists the pickings a warehouse change would
// touch and the rewrites it would apply, without mutating anything
type ChangeWarehousePreviewDTO struct {
	PickingID         string             `json:"pickingId"`
	TargetWarehouseID string             `json:"targetWarehouseId"`
	IncludeChained    bool               `json:"includeChained"`
	Members           []PreviewMemberDTO `json:"members"`
}

// PreviewMemberDTO describes the planned rewrite for one chain member
type PreviewMemberDTO struct {
	PickingID                string      `json:"pickingId"`
	Name                     string      `json:"name"`
	State                    string      `json:"state"`
	WarehouseID              string      `json:"warehouseId"`
	OperationTypeID          string      `json:"operationTypeId"`
	PlannedOperationTypeID   string      `json:"plannedOperationTypeId"`
	PlannedOperationTypeName string      `json:"plannedOperationTypeName"`
	PlannedSourceLocation    LocationDTO `json:"plannedSourceLocation"`
	PlannedDestLocation      LocationDTO `json:"plannedDestLocation"`
}
