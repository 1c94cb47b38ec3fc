package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrPickingDone         = errors.New("picking is done and can no longer be modified")
	ErrPickingNotCancelled = errors.New("picking must be cancelled before returning to draft")
	ErrPickingNotDraft     = errors.New("picking must be in draft to confirm")
	ErrMoveDone            = errors.New("move is done and cannot be cancelled")
	ErrMoveNotFound        = errors.New("move not found in picking")
	ErrMoveNotTracked      = errors.New("move does not track lots or serials")
	ErrNoMoves             = errors.New("picking has no moves")
)

// Tracking represents how a product is tracked through the warehouse
type Tracking string

const (
	TrackingNone   Tracking = "none"
	TrackingLot    Tracking = "lot"
	TrackingSerial Tracking = "serial"
)

// ProcureMethod represents how a move sources its stock
type ProcureMethod string

const (
	MakeToStock ProcureMethod = "make_to_stock" // Take from available stock
	MakeToOrder ProcureMethod = "make_to_order" // Wait for chained origin moves
)

// LocationUsage classifies what a stock location is used for
type LocationUsage string

const (
	UsageSupplier LocationUsage = "supplier"
	UsageCustomer LocationUsage = "customer"
	UsageInternal LocationUsage = "internal"
	UsageTransit  LocationUsage = "transit"
)

// Location is an embedded reference to a stock location
type Location struct {
	LocationID  string        `bson:"locationId"`
	Name        string        `bson:"name"`
	Usage       LocationUsage `bson:"usage"`
	WarehouseID string        `bson:"warehouseId,omitempty"`
}

// IsExternal returns true for locations outside any warehouse, such as
// supplier and customer locations
func (l Location) IsExternal() bool {
	return l.Usage == UsageSupplier || l.Usage == UsageCustomer
}

// Move represents a single product movement line within a picking
type Move struct {
	MoveID          string          `bson:"moveId"`
	SKU             string          `bson:"sku"`
	ProductName     string          `bson:"productName"`
	Quantity        decimal.Decimal `bson:"quantity"`
	ReservedQty     decimal.Decimal `bson:"reservedQty"`
	Tracking        Tracking        `bson:"tracking"`
	LotSerial       string          `bson:"lotSerial,omitempty"`
	State           State           `bson:"state"`
	ProcureMethod   ProcureMethod   `bson:"procureMethod"`
	PropagateCancel bool            `bson:"propagateCancel"`
	Scrapped        bool            `bson:"scrapped"`
	SourceLocation  Location        `bson:"sourceLocation"`
	DestLocation    Location        `bson:"destLocation"`
	OrigMoveIDs     []string        `bson:"origMoveIds,omitempty"`
	DestMoveIDs     []string        `bson:"destMoveIds,omitempty"`
}

// IsChained returns true if the move receives stock from origin moves
func (m Move) IsChained() bool {
	return len(m.OrigMoveIDs) > 0
}

// Picking is the aggregate root for the Transfer bounded context. It
// models one stock operation (receipt, internal transfer or delivery)
// together with its product moves and its links to chained pickings.
type Picking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	PickingID       string             `bson:"pickingId"`
	Name            string             `bson:"name"`
	TenantID        string             `bson:"tenantId"`
	WarehouseID     string             `bson:"warehouseId"`
	OperationTypeID string             `bson:"operationTypeId"`
	OperationKind   OperationKind      `bson:"operationKind"`
	PartnerID       string             `bson:"partnerId,omitempty"`
	SourceLocation  Location           `bson:"sourceLocation"`
	DestLocation    Location           `bson:"destLocation"`
	State           State              `bson:"state"`
	Moves           []Move             `bson:"moves"`
	PrevPickingIDs  []string           `bson:"prevPickingIds,omitempty"`
	NextPickingIDs  []string           `bson:"nextPickingIds,omitempty"`
	ScheduledAt     *time.Time         `bson:"scheduledAt,omitempty"`
	DoneAt          *time.Time         `bson:"doneAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-"`
}

// NewPicking creates a new picking in draft state
func NewPicking(pickingID, name, tenantID, warehouseID string, opType OperationType, source, dest Location, moves []Move) (*Picking, error) {
	if pickingID == "" {
		return nil, errors.New("picking ID is required")
	}
	if tenantID == "" {
		return nil, errors.New("tenant ID is required")
	}
	if warehouseID == "" {
		return nil, errors.New("warehouse ID is required")
	}
	if len(moves) == 0 {
		return nil, ErrNoMoves
	}

	now := time.Now()
	for i := range moves {
		if moves[i].MoveID == "" {
			moves[i].MoveID = generateMoveID()
		}
		moves[i].State = StateDraft
		if moves[i].SourceLocation.LocationID == "" {
			moves[i].SourceLocation = source
		}
		if moves[i].DestLocation.LocationID == "" {
			moves[i].DestLocation = dest
		}
	}

	picking := &Picking{
		PickingID:       pickingID,
		Name:            name,
		TenantID:        tenantID,
		WarehouseID:     warehouseID,
		OperationTypeID: opType.OperationTypeID,
		OperationKind:   opType.Code,
		SourceLocation:  source,
		DestLocation:    dest,
		State:           StateDraft,
		Moves:           moves,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    []DomainEvent{},
	}

	picking.AddDomainEvent(&TransferCreatedEvent{
		PickingID:   pickingID,
		Name:        name,
		WarehouseID: warehouseID,
		MoveCount:   len(moves),
		CreatedAt:   now,
	})

	return picking, nil
}

// Cancel cancels the picking and every move that is not yet done.
// Cancelling an already cancelled picking is a no-op. Scrapped moves
// that already reached done are left untouched; any other done move
// blocks the cancellation.
func (p *Picking) Cancel(reason string) error {
	if p.State.IsCancelled() {
		return nil
	}
	if !p.State.CanTransitionTo(StateCancelled) {
		return ErrPickingDone
	}

	for _, move := range p.Moves {
		if move.State.IsDone() && !move.Scrapped {
			return fmt.Errorf("%w: %s", ErrMoveDone, move.MoveID)
		}
	}

	cancelled := 0
	for i := range p.Moves {
		move := &p.Moves[i]
		if move.State.IsDone() || move.State.IsCancelled() {
			continue
		}
		move.State = StateCancelled
		move.ReservedQty = decimal.Zero
		cancelled++
	}

	p.State = StateCancelled
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(&TransferCancelledEvent{
		PickingID:   p.PickingID,
		WarehouseID: p.WarehouseID,
		Reason:      reason,
		MoveCount:   cancelled,
		CancelledAt: p.UpdatedAt,
	})

	return nil
}

// BackToDraft returns a cancelled picking to draft so it can be
// reworked and confirmed again. Chain references and captured lots or
// serials are preserved; chained moves regain make-to-order sourcing.
func (p *Picking) BackToDraft() error {
	if !p.State.CanTransitionTo(StateDraft) {
		if p.State.IsDone() {
			return ErrPickingDone
		}
		return ErrPickingNotCancelled
	}

	for i := range p.Moves {
		move := &p.Moves[i]
		if move.State.IsDone() && move.Scrapped {
			continue
		}
		move.State = StateDraft
		move.ReservedQty = decimal.Zero
		if move.IsChained() {
			move.ProcureMethod = MakeToOrder
		}
	}

	p.State = StateDraft
	p.DoneAt = nil
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(&TransferReturnedToDraftEvent{
		PickingID:   p.PickingID,
		WarehouseID: p.WarehouseID,
		ReturnedAt:  p.UpdatedAt,
	})

	return nil
}

// Confirm moves a draft picking into the confirmed stage. Chained
// make-to-order moves go to waiting until their origin moves deliver;
// everything else is confirmed directly.
func (p *Picking) Confirm() error {
	if p.State.IsDone() {
		return ErrPickingDone
	}
	if !p.State.IsDraft() {
		return ErrPickingNotDraft
	}

	for i := range p.Moves {
		move := &p.Moves[i]
		if !move.State.IsDraft() {
			continue
		}
		if move.ProcureMethod == MakeToOrder && move.IsChained() {
			move.State = StateWaiting
		} else {
			move.State = StateConfirmed
		}
	}

	p.RefreshStateFromMoves()
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(&TransferConfirmedEvent{
		PickingID:   p.PickingID,
		WarehouseID: p.WarehouseID,
		State:       p.State.String(),
		ConfirmedAt: p.UpdatedAt,
	})

	return nil
}

// TryReserve attempts to reserve stock for every waiting or confirmed
// move. Chained moves are only reserved once all of their origin moves
// are known and not cancelled; originStates carries the states of moves
// that live in other pickings of the chain. Returns the number of moves
// that were reserved.
func (p *Picking) TryReserve(originStates map[string]State) int {
	if p.State.IsFinal() {
		return 0
	}

	reserved := 0
	for i := range p.Moves {
		move := &p.Moves[i]
		if !move.State.IsWaiting() && !move.State.IsConfirmed() {
			continue
		}
		if move.ProcureMethod == MakeToOrder && move.IsChained() {
			if !originsHealthy(move.OrigMoveIDs, originStates) {
				continue
			}
		}
		move.State = StateAssigned
		move.ReservedQty = move.Quantity
		reserved++
	}

	if reserved > 0 {
		p.RefreshStateFromMoves()
		p.UpdatedAt = time.Now()
		p.AddDomainEvent(&TransferReservedEvent{
			PickingID:   p.PickingID,
			WarehouseID: p.WarehouseID,
			MoveCount:   reserved,
			ReservedAt:  p.UpdatedAt,
		})
	}

	return reserved
}

// originsHealthy reports whether every origin move is present and not cancelled
func originsHealthy(origIDs []string, originStates map[string]State) bool {
	for _, id := range origIDs {
		state, ok := originStates[id]
		if !ok || state.IsCancelled() {
			return false
		}
	}
	return true
}

// RelocateTo rewrites a draft picking onto the target warehouse. The
// operation type is replaced with its target equivalent and every
// location owned by the previous warehouse is remapped to the location
// playing the same role in the target. External supplier and customer
// locations are kept as they are.
func (p *Picking) RelocateTo(from, target *Warehouse, opType OperationType) error {
	if p.State.IsDone() {
		return ErrPickingDone
	}
	if !p.State.IsDraft() {
		return ErrPickingNotDraft
	}

	previousWarehouseID := p.WarehouseID

	p.WarehouseID = target.WarehouseID
	p.OperationTypeID = opType.OperationTypeID
	p.OperationKind = opType.Code

	if opType.DefaultSourceLocation != nil {
		p.SourceLocation = *opType.DefaultSourceLocation
	} else {
		p.SourceLocation = target.CounterpartLocation(p.SourceLocation, from)
	}
	if opType.DefaultDestLocation != nil {
		p.DestLocation = *opType.DefaultDestLocation
	} else {
		p.DestLocation = target.CounterpartLocation(p.DestLocation, from)
	}

	for i := range p.Moves {
		move := &p.Moves[i]
		if move.State.IsDone() {
			continue
		}
		move.SourceLocation = target.CounterpartLocation(move.SourceLocation, from)
		move.DestLocation = target.CounterpartLocation(move.DestLocation, from)
	}

	p.UpdatedAt = time.Now()

	p.AddDomainEvent(&TransferWarehouseChangedEvent{
		PickingID:       p.PickingID,
		FromWarehouseID: previousWarehouseID,
		ToWarehouseID:   target.WarehouseID,
		OperationTypeID: opType.OperationTypeID,
		ChangedAt:       p.UpdatedAt,
	})

	return nil
}

// AssignLotSerial records the lot or serial captured for a move
func (p *Picking) AssignLotSerial(moveID, lotSerial string) error {
	move, ok := p.MoveByID(moveID)
	if !ok {
		return ErrMoveNotFound
	}
	if move.State.IsDone() {
		return ErrMoveDone
	}
	if move.Tracking == TrackingNone {
		return ErrMoveNotTracked
	}

	move.LotSerial = lotSerial
	p.UpdatedAt = time.Now()
	return nil
}

// MoveByID returns a pointer to the move with the given ID
func (p *Picking) MoveByID(moveID string) (*Move, bool) {
	for i := range p.Moves {
		if p.Moves[i].MoveID == moveID {
			return &p.Moves[i], true
		}
	}
	return nil, false
}

// HasChain returns true if the picking is linked to other pickings
func (p *Picking) HasChain() bool {
	return len(p.PrevPickingIDs) > 0 || len(p.NextPickingIDs) > 0
}

// RefreshStateFromMoves recomputes the picking state from its moves.
// Scrapped moves are ignored so a cancelled transfer with scrap left
// over still reads as cancelled.
func (p *Picking) RefreshStateFromMoves() {
	var (
		total     int
		done      int
		cancelled int
		draft     int
		waiting   int
		confirmed int
	)

	for _, move := range p.Moves {
		if move.Scrapped {
			continue
		}
		total++
		switch {
		case move.State.IsDone():
			done++
		case move.State.IsCancelled():
			cancelled++
		case move.State.IsDraft():
			draft++
		case move.State.IsWaiting():
			waiting++
		case move.State.IsConfirmed():
			confirmed++
		}
	}

	if total == 0 {
		return
	}

	switch {
	case cancelled == total:
		p.State = StateCancelled
	case done+cancelled == total:
		p.State = StateDone
		if p.DoneAt == nil {
			now := time.Now()
			p.DoneAt = &now
		}
	case draft > 0:
		p.State = StateDraft
	case waiting > 0:
		p.State = StateWaiting
	case confirmed > 0:
		p.State = StateConfirmed
	default:
		p.State = StateAssigned
	}
}

// AddDomainEvent adds a domain event to the aggregate
func (p *Picking) AddDomainEvent(event DomainEvent) {
	p.DomainEvents = append(p.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (p *Picking) ClearDomainEvents() {
	p.DomainEvents = []DomainEvent{}
}

// GetDomainEvents returns all domain events
func (p *Picking) GetDomainEvents() []DomainEvent {
	return p.DomainEvents
}

// generateMoveID generates a unique move ID
func generateMoveID() string {
	return fmt.Sprintf("MOVE-%s", uuid.New().String()[:8])
}
