package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrWarehouseNotFound         = errors.New("warehouse not found")
	ErrNoEquivalentOperationType = errors.New("no equivalent operation type in target warehouse")
	ErrOperationTypeNotFound     = errors.New("operation type not found in warehouse")
)

// OperationKind classifies what an operation type does
type OperationKind string

const (
	OperationIncoming OperationKind = "incoming"
	OperationOutgoing OperationKind = "outgoing"
	OperationInternal OperationKind = "internal"
)

// DeliverySteps represents the outbound routing configured for a warehouse
type DeliverySteps string

const (
	DeliverShipOnly     DeliverySteps = "ship_only"
	DeliverPickShip     DeliverySteps = "pick_ship"
	DeliverPickPackShip DeliverySteps = "pick_pack_ship"
)

// ReceptionSteps represents the inbound routing configured for a warehouse
type ReceptionSteps string

const (
	ReceiveOneStep    ReceptionSteps = "one_step"
	ReceiveTwoSteps   ReceptionSteps = "two_steps"
	ReceiveThreeSteps ReceptionSteps = "three_steps"
)

// OperationType describes one kind of stock operation a warehouse
// performs. The sequence code identifies the role the type plays in the
// warehouse routing (PICK, PACK, OUT, IN, INT) independently of the
// warehouse it belongs to.
type OperationType struct {
	OperationTypeID       string        `bson:"operationTypeId"`
	Name                  string        `bson:"name"`
	Code                  OperationKind `bson:"code"`
	SequenceCode          string        `bson:"sequenceCode"`
	DefaultSourceLocation *Location     `bson:"defaultSourceLocation,omitempty"`
	DefaultDestLocation   *Location     `bson:"defaultDestLocation,omitempty"`
}

// Warehouse is the aggregate root for warehouse reference data. It
// carries the standard locations and the operation types the change
// warehouse flow needs to rewrite pickings.
type Warehouse struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	WarehouseID      string             `bson:"warehouseId"`
	TenantID         string             `bson:"tenantId"`
	Code             string             `bson:"code"`
	Name             string             `bson:"name"`
	Active           bool               `bson:"active"`
	LotStockLocation Location           `bson:"lotStockLocation"`
	InputLocation    Location           `bson:"inputLocation"`
	OutputLocation   Location           `bson:"outputLocation"`
	PackLocation     Location           `bson:"packLocation"`
	DeliverySteps    DeliverySteps      `bson:"deliverySteps"`
	ReceptionSteps   ReceptionSteps     `bson:"receptionSteps"`
	OperationTypes   []OperationType    `bson:"operationTypes"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

// NewWarehouse creates a new warehouse with its standard locations
func NewWarehouse(warehouseID, tenantID, code, name string) (*Warehouse, error) {
	if warehouseID == "" {
		return nil, errors.New("warehouse ID is required")
	}
	if tenantID == "" {
		return nil, errors.New("tenant ID is required")
	}
	if code == "" {
		return nil, errors.New("warehouse code is required")
	}

	now := time.Now()
	return &Warehouse{
		WarehouseID:    warehouseID,
		TenantID:       tenantID,
		Code:           code,
		Name:           name,
		Active:         true,
		DeliverySteps:  DeliverShipOnly,
		ReceptionSteps: ReceiveOneStep,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// OperationTypeByID returns the operation type with the given ID
func (w *Warehouse) OperationTypeByID(operationTypeID string) (OperationType, bool) {
	for _, opType := range w.OperationTypes {
		if opType.OperationTypeID == operationTypeID {
			return opType, true
		}
	}
	return OperationType{}, false
}

// EquivalentOperationType finds the operation type in this warehouse
// matching a type from another warehouse. The sequence code is the
// strongest signal; the operation kind breaks ties when the sequence
// codes do not line up.
func (w *Warehouse) EquivalentOperationType(from OperationType) (OperationType, error) {
	if from.SequenceCode != "" {
		for _, opType := range w.OperationTypes {
			if opType.SequenceCode == from.SequenceCode {
				return opType, nil
			}
		}
	}
	for _, opType := range w.OperationTypes {
		if opType.Code == from.Code {
			return opType, nil
		}
	}
	return OperationType{}, ErrNoEquivalentOperationType
}

// CounterpartLocation resolves the location in this warehouse playing
// the same role as loc does in the from warehouse. External locations
// are returned unchanged; interior locations without a named role fall
// back to the stock location.
func (w *Warehouse) CounterpartLocation(loc Location, from *Warehouse) Location {
	if from == nil || loc.IsExternal() {
		return loc
	}

	switch loc.LocationID {
	case from.LotStockLocation.LocationID:
		return w.LotStockLocation
	case from.InputLocation.LocationID:
		return w.InputLocation
	case from.OutputLocation.LocationID:
		return w.OutputLocation
	case from.PackLocation.LocationID:
		return w.PackLocation
	}

	if loc.WarehouseID == from.WarehouseID {
		return w.LotStockLocation
	}

	return loc
}
