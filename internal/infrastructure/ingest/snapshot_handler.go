package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

// Event types consumed from the inbound topics
const (
	TransferSnapshotEventType  = cloudevents.TransferSnapshotUpdated
	WarehouseSnapshotEventType = cloudevents.WarehouseSnapshotUpdated
)

// SnapshotHandler applies snapshot events from the upstream transfer and
// warehouse owners onto the local read models. Malformed snapshots are
// dropped after logging; storage failures are returned so the message is
// redelivered.
type SnapshotHandler struct {
	pickings   domain.PickingRepository
	warehouses domain.WarehouseRepository
	logger     *logging.Logger
}

func NewSnapshotHandler(
	pickings domain.PickingRepository,
	warehouses domain.WarehouseRepository,
	logger *logging.Logger,
) *SnapshotHandler {
	return &SnapshotHandler{
		pickings:   pickings,
		warehouses: warehouses,
		logger:     logger,
	}
}

// Subscriber registers handlers for inbound event types
type Subscriber interface {
	Subscribe(topic, eventType string, handler kafka.EventHandler)
}

// Register subscribes the handler on the inbound snapshot topics
func (h *SnapshotHandler) Register(consumer Subscriber) {
	consumer.Subscribe(kafka.Topics.TransfersInbound, TransferSnapshotEventType, h.HandleTransferSnapshot)
	consumer.Subscribe(kafka.Topics.WarehousesInbound, WarehouseSnapshotEventType, h.HandleWarehouseSnapshot)
}

// HandleTransferSnapshot upserts a picking from an upstream snapshot event
func (h *SnapshotHandler) HandleTransferSnapshot(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	var snapshot transferSnapshot
	if err := decodeEventData(event, &snapshot); err != nil {
		h.logger.WithError(err).Error("Dropping malformed transfer snapshot", "eventId", event.ID)
		return nil
	}
	if snapshot.PickingID == "" {
		h.logger.Error("Dropping transfer snapshot without picking ID", "eventId", event.ID)
		return nil
	}

	picking, err := snapshot.toDomain()
	if err != nil {
		h.logger.WithError(err).Error("Dropping invalid transfer snapshot", "pickingId", snapshot.PickingID)
		return nil
	}

	if err := h.pickings.UpsertSnapshot(ctx, picking); err != nil {
		return fmt.Errorf("failed to store transfer snapshot %s: %w", snapshot.PickingID, err)
	}

	h.logger.Event(ctx, "transfer.snapshot-applied", map[string]any{
		"pickingId": snapshot.PickingID,
		"state":     snapshot.State,
	})
	return nil
}

// HandleWarehouseSnapshot upserts a warehouse from an upstream snapshot event
func (h *SnapshotHandler) HandleWarehouseSnapshot(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
	var snapshot warehouseSnapshot
	if err := decodeEventData(event, &snapshot); err != nil {
		h.logger.WithError(err).Error("Dropping malformed warehouse snapshot", "eventId", event.ID)
		return nil
	}
	if snapshot.WarehouseID == "" {
		h.logger.Error("Dropping warehouse snapshot without warehouse ID", "eventId", event.ID)
		return nil
	}

	if err := h.warehouses.UpsertSnapshot(ctx, snapshot.toDomain()); err != nil {
		return fmt.Errorf("failed to store warehouse snapshot %s: %w", snapshot.WarehouseID, err)
	}

	h.logger.Event(ctx, "warehouse.snapshot-applied", map[string]any{
		"warehouseId": snapshot.WarehouseID,
		"active":      snapshot.Active,
	})
	return nil
}

// decodeEventData round-trips the event payload through JSON so map
// payloads decoded off the wire land in the typed snapshot structs
func decodeEventData(event *cloudevents.WMSCloudEvent, target interface{}) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}
	return nil
}

type locationSnapshot struct {
	LocationID  string `json:"locationId"`
	Name        string `json:"name"`
	Usage       string `json:"usage"`
	WarehouseID string `json:"warehouseId"`
}

func (s locationSnapshot) toDomain() domain.Location {
	return domain.Location{
		LocationID:  s.LocationID,
		Name:        s.Name,
		Usage:       domain.LocationUsage(s.Usage),
		WarehouseID: s.WarehouseID,
	}
}

type moveSnapshot struct {
	MoveID          string           `json:"moveId"`
	SKU             string           `json:"sku"`
	ProductName     string           `json:"productName"`
	Quantity        decimal.Decimal  `json:"quantity"`
	ReservedQty     decimal.Decimal  `json:"reservedQty"`
	Tracking        string           `json:"tracking"`
	LotSerial       string           `json:"lotSerial"`
	State           string           `json:"state"`
	ProcureMethod   string           `json:"procureMethod"`
	PropagateCancel bool             `json:"propagateCancel"`
	Scrapped        bool             `json:"scrapped"`
	SourceLocation  locationSnapshot `json:"sourceLocation"`
	DestLocation    locationSnapshot `json:"destLocation"`
	OrigMoveIDs     []string         `json:"origMoveIds"`
	DestMoveIDs     []string         `json:"destMoveIds"`
}

type transferSnapshot struct {
	PickingID       string           `json:"pickingId"`
	Name            string           `json:"name"`
	TenantID        string           `json:"tenantId"`
	WarehouseID     string           `json:"warehouseId"`
	OperationTypeID string           `json:"operationTypeId"`
	OperationKind   string           `json:"operationKind"`
	PartnerID       string           `json:"partnerId"`
	SourceLocation  locationSnapshot `json:"sourceLocation"`
	DestLocation    locationSnapshot `json:"destLocation"`
	State           string           `json:"state"`
	Moves           []moveSnapshot   `json:"moves"`
	PrevPickingIDs  []string         `json:"prevPickingIds"`
	NextPickingIDs  []string         `json:"nextPickingIds"`
	ScheduledAt     *time.Time       `json:"scheduledAt"`
	DoneAt          *time.Time       `json:"doneAt"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (s transferSnapshot) toDomain() (*domain.Picking, error) {
	state, err := domain.NewState(s.State)
	if err != nil {
		return nil, fmt.Errorf("picking state %q: %w", s.State, err)
	}

	moves := make([]domain.Move, 0, len(s.Moves))
	for _, m := range s.Moves {
		moveState, err := domain.NewState(m.State)
		if err != nil {
			return nil, fmt.Errorf("move %s state %q: %w", m.MoveID, m.State, err)
		}
		moves = append(moves, domain.Move{
			MoveID:          m.MoveID,
			SKU:             m.SKU,
			ProductName:     m.ProductName,
			Quantity:        m.Quantity,
			ReservedQty:     m.ReservedQty,
			Tracking:        domain.Tracking(m.Tracking),
			LotSerial:       m.LotSerial,
			State:           moveState,
			ProcureMethod:   domain.ProcureMethod(m.ProcureMethod),
			PropagateCancel: m.PropagateCancel,
			Scrapped:        m.Scrapped,
			SourceLocation:  m.SourceLocation.toDomain(),
			DestLocation:    m.DestLocation.toDomain(),
			OrigMoveIDs:     m.OrigMoveIDs,
			DestMoveIDs:     m.DestMoveIDs,
		})
	}

	return &domain.Picking{
		PickingID:       s.PickingID,
		Name:            s.Name,
		TenantID:        s.TenantID,
		WarehouseID:     s.WarehouseID,
		OperationTypeID: s.OperationTypeID,
		OperationKind:   domain.OperationKind(s.OperationKind),
		PartnerID:       s.PartnerID,
		SourceLocation:  s.SourceLocation.toDomain(),
		DestLocation:    s.DestLocation.toDomain(),
		State:           state,
		Moves:           moves,
		PrevPickingIDs:  s.PrevPickingIDs,
		NextPickingIDs:  s.NextPickingIDs,
		ScheduledAt:     s.ScheduledAt,
		DoneAt:          s.DoneAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

type operationTypeSnapshot struct {
	OperationTypeID       string            `json:"operationTypeId"`
	Name                  string            `json:"name"`
	Code                  string            `json:"code"`
	SequenceCode          string            `json:"sequenceCode"`
	DefaultSourceLocation *locationSnapshot `json:"defaultSourceLocation"`
	DefaultDestLocation   *locationSnapshot `json:"defaultDestLocation"`
}

type warehouseSnapshot struct {
	WarehouseID      string                  `json:"warehouseId"`
	TenantID         string                  `json:"tenantId"`
	Code             string                  `json:"code"`
	Name             string                  `json:"name"`
	Active           bool                    `json:"active"`
	LotStockLocation locationSnapshot        `json:"lotStockLocation"`
	InputLocation    locationSnapshot        `json:"inputLocation"`
	OutputLocation   locationSnapshot        `json:"outputLocation"`
	PackLocation     locationSnapshot        `json:"packLocation"`
	DeliverySteps    string                  `json:"deliverySteps"`
	ReceptionSteps   string                  `json:"receptionSteps"`
	OperationTypes   []operationTypeSnapshot `json:"operationTypes"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

func (s warehouseSnapshot) toDomain() *domain.Warehouse {
	opTypes := make([]domain.OperationType, 0, len(s.OperationTypes))
	for _, ot := range s.OperationTypes {
		opType := domain.OperationType{
			OperationTypeID: ot.OperationTypeID,
			Name:            ot.Name,
			Code:            domain.OperationKind(ot.Code),
			SequenceCode:    ot.SequenceCode,
		}
		if ot.DefaultSourceLocation != nil {
			loc := ot.DefaultSourceLocation.toDomain()
			opType.DefaultSourceLocation = &loc
		}
		if ot.DefaultDestLocation != nil {
			loc := ot.DefaultDestLocation.toDomain()
			opType.DefaultDestLocation = &loc
		}
		opTypes = append(opTypes, opType)
	}

	return &domain.Warehouse{
		WarehouseID:      s.WarehouseID,
		TenantID:         s.TenantID,
		Code:             s.Code,
		Name:             s.Name,
		Active:           s.Active,
		LotStockLocation: s.LotStockLocation.toDomain(),
		InputLocation:    s.InputLocation.toDomain(),
		OutputLocation:   s.OutputLocation.toDomain(),
		PackLocation:     s.PackLocation.toDomain(),
		DeliverySteps:    domain.DeliverySteps(s.DeliverySteps),
		ReceptionSteps:   domain.ReceptionSteps(s.ReceptionSteps),
		OperationTypes:   opTypes,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
