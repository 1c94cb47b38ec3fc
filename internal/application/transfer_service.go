package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/errors"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

// TransferApplicationService handles the picking lifecycle use cases:
// cancel, back to draft, confirm and the combined cancel-to-draft batch.
type TransferApplicationService struct {
	pickings   domain.PickingRepository
	warehouses domain.WarehouseRepository
	logger     *logging.Logger
	validate   *validator.Validate
}

// NewTransferApplicationService creates a new TransferApplicationService
func NewTransferApplicationService(
	pickings domain.PickingRepository,
	warehouses domain.WarehouseRepository,
	logger *logging.Logger,
) *TransferApplicationService {
	return &TransferApplicationService{
		pickings:   pickings,
		warehouses: warehouses,
		logger:     logger,
		validate:   validator.New(),
	}
}

// GetPicking retrieves a picking by ID
func (s *TransferApplicationService) GetPicking(ctx context.Context, query GetPickingQuery) (*PickingDTO, error) {
	picking, err := s.pickings.FindByID(ctx, query.PickingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get picking", "pickingId", query.PickingID)
		return nil, fmt.Errorf("failed to get picking: %w", err)
	}
	if picking == nil {
		return nil, errors.ErrNotFoundWithID("picking", query.PickingID)
	}

	return ToPickingDTO(picking), nil
}

// ListPickings retrieves pickings with optional state and warehouse filters
func (s *TransferApplicationService) ListPickings(ctx context.Context, query ListPickingsQuery) ([]PickingDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	var states []domain.State
	if query.State != "" {
		state, err := domain.NewState(query.State)
		if err != nil {
			return nil, errors.ErrValidation(fmt.Sprintf("unknown state %q", query.State))
		}
		states = []domain.State{state}
	}

	var pickings []*domain.Picking
	var err error
	switch {
	case query.WarehouseID != "":
		pickings, err = s.pickings.FindByWarehouse(ctx, query.WarehouseID, states, limit)
	case len(states) == 1:
		pickings, err = s.pickings.FindByState(ctx, states[0], limit)
	default:
		pickings, err = s.pickings.FindByWarehouse(ctx, "", nil, limit)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list pickings", "state", query.State, "warehouseId", query.WarehouseID)
		return nil, fmt.Errorf("failed to list pickings: %w", err)
	}

	return ToPickingDTOs(pickings), nil
}

// CancelToDraft cancels the selected pickings and returns them to draft
// in one transaction. With IncludeChained the action extends to every
// picking chained to a selected one. Done documents block the batch.
// Moves flagged to propagate cancellation cascade it onto chained
// destination moves even outside the action set.
func (s *TransferApplicationService) CancelToDraft(ctx context.Context, cmd CancelToDraftCommand) (*CancelToDraftResultDTO, error) {
	if appErr := validateCommand(s.validate, cmd); appErr != nil {
		return nil, appErr
	}

	selected, err := s.pickings.FindByIDs(ctx, cmd.PickingIDs)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load pickings", "count", len(cmd.PickingIDs))
		return nil, fmt.Errorf("failed to load pickings: %w", err)
	}

	found := make(map[string]bool, len(selected))
	for _, p := range selected {
		found[p.PickingID] = true
	}
	var missing []string
	for _, id := range cmd.PickingIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, errPickingsNotFound(missing)
	}

	walkStart := time.Now()
	chain, err := loadChainMembers(ctx, s.pickings, selected)
	if err != nil {
		return nil, mapDomainError(err)
	}
	s.logger.ChainWalk(ctx, selected[0].PickingID, len(chain), time.Since(walkStart))

	actionSet := selected
	if cmd.IncludeChained {
		actionSet = chain
	}

	var blocked []string
	for _, p := range actionSet {
		if p.State.IsDone() {
			blocked = append(blocked, p.PickingID)
		}
	}
	if len(blocked) > 0 {
		return nil, errBlockedByDone(blocked)
	}

	updatedBefore := make(map[string]time.Time, len(chain))
	for _, p := range chain {
		updatedBefore[p.PickingID] = p.UpdatedAt
	}

	for _, p := range actionSet {
		from := p.State.String()
		if err := p.Cancel(cmd.Reason); err != nil {
			return nil, mapDomainError(err)
		}
		s.logger.StateChange(ctx, "picking", p.PickingID, from, p.State.String())
	}

	cascaded := domain.CascadeCancellations(chain)

	for _, p := range actionSet {
		if err := p.BackToDraft(); err != nil {
			return nil, mapDomainError(err)
		}
	}

	inAction := make(map[string]bool, len(actionSet))
	for _, p := range actionSet {
		inAction[p.PickingID] = true
	}
	toSave := make([]*domain.Picking, 0, len(chain))
	for _, p := range chain {
		if inAction[p.PickingID] || !p.UpdatedAt.Equal(updatedBefore[p.PickingID]) {
			toSave = append(toSave, p)
		}
	}

	if err := s.pickings.SaveAll(ctx, toSave); err != nil {
		s.logger.WithError(err).Error("Failed to save pickings", "count", len(toSave))
		return nil, fmt.Errorf("failed to save pickings: %w", err)
	}

	s.logger.Event(ctx, "transfer.cancel-to-draft", map[string]any{
		"selected":       len(cmd.PickingIDs),
		"actionSet":      len(actionSet),
		"cascadedMoves":  cascaded,
		"includeChained": cmd.IncludeChained,
	})

	return &CancelToDraftResultDTO{
		Pickings:      ToPickingDTOs(actionSet),
		CascadedMoves: cascaded,
	}, nil
}

// CancelPicking cancels a single picking, cascading flagged
// cancellations through its chain
func (s *TransferApplicationService) CancelPicking(ctx context.Context, cmd CancelPickingCommand) (*PickingDTO, error) {
	if appErr := validateCommand(s.validate, cmd); appErr != nil {
		return nil, appErr
	}

	picking, err := s.pickings.FindByID(ctx, cmd.PickingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get picking", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to get picking: %w", err)
	}
	if picking == nil {
		return nil, errors.ErrNotFoundWithID("picking", cmd.PickingID)
	}

	chain, err := loadChainMembers(ctx, s.pickings, []*domain.Picking{picking})
	if err != nil {
		return nil, mapDomainError(err)
	}

	updatedBefore := make(map[string]time.Time, len(chain))
	for _, p := range chain {
		updatedBefore[p.PickingID] = p.UpdatedAt
	}

	from := picking.State.String()
	if err := picking.Cancel(cmd.Reason); err != nil {
		return nil, mapDomainError(err)
	}
	s.logger.StateChange(ctx, "picking", picking.PickingID, from, picking.State.String())

	domain.CascadeCancellations(chain)

	toSave := make([]*domain.Picking, 0, len(chain))
	for _, p := range chain {
		if p.PickingID == picking.PickingID || !p.UpdatedAt.Equal(updatedBefore[p.PickingID]) {
			toSave = append(toSave, p)
		}
	}

	if err := s.pickings.SaveAll(ctx, toSave); err != nil {
		s.logger.WithError(err).Error("Failed to save pickings", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to save pickings: %w", err)
	}

	return ToPickingDTO(picking), nil
}

// ReturnToDraft returns a cancelled picking to draft. Chain references
// survive; chained moves regain their make-to-order sourcing.
func (s *TransferApplicationService) ReturnToDraft(ctx context.Context, cmd BackToDraftCommand) (*PickingDTO, error) {
	if appErr := validateCommand(s.validate, cmd); appErr != nil {
		return nil, appErr
	}

	picking, err := s.pickings.FindByID(ctx, cmd.PickingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get picking", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to get picking: %w", err)
	}
	if picking == nil {
		return nil, errors.ErrNotFoundWithID("picking", cmd.PickingID)
	}

	from := picking.State.String()
	if err := picking.BackToDraft(); err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.pickings.Save(ctx, picking); err != nil {
		s.logger.WithError(err).Error("Failed to save picking", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to save picking: %w", err)
	}

	s.logger.StateChange(ctx, "picking", picking.PickingID, from, picking.State.String())
	return ToPickingDTO(picking), nil
}

// ConfirmPicking confirms a draft picking and attempts to reserve its
// moves. Chained moves reserve only when their origin moves across the
// chain are present and not cancelled.
func (s *TransferApplicationService) ConfirmPicking(ctx context.Context, cmd ConfirmPickingCommand) (*PickingDTO, error) {
	if appErr := validateCommand(s.validate, cmd); appErr != nil {
		return nil, appErr
	}

	picking, err := s.pickings.FindByID(ctx, cmd.PickingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get picking", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to get picking: %w", err)
	}
	if picking == nil {
		return nil, errors.ErrNotFoundWithID("picking", cmd.PickingID)
	}

	from := picking.State.String()
	if err := picking.Confirm(); err != nil {
		return nil, mapDomainError(err)
	}

	chain := []*domain.Picking{picking}
	if picking.HasChain() {
		chain, err = loadChainMembers(ctx, s.pickings, []*domain.Picking{picking})
		if err != nil {
			return nil, mapDomainError(err)
		}
	}
	picking.TryReserve(originStates(chain))

	if err := s.pickings.Save(ctx, picking); err != nil {
		s.logger.WithError(err).Error("Failed to save picking", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to save picking: %w", err)
	}

	s.logger.StateChange(ctx, "picking", picking.PickingID, from, picking.State.String())
	return ToPickingDTO(picking), nil
}

// GetWarehouse retrieves a warehouse by ID
func (s *TransferApplicationService) GetWarehouse(ctx context.Context, query GetWarehouseQuery) (*WarehouseDTO, error) {
	warehouse, err := s.warehouses.FindByID(ctx, query.WarehouseID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get warehouse", "warehouseId", query.WarehouseID)
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	if warehouse == nil {
		return nil, errors.ErrNotFoundWithID("warehouse", query.WarehouseID)
	}

	return ToWarehouseDTO(warehouse), nil
}

// ListWarehouses retrieves every warehouse visible to the tenant
func (s *TransferApplicationService) ListWarehouses(ctx context.Context) ([]WarehouseDTO, error) {
	warehouses, err := s.warehouses.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list warehouses")
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}

	return ToWarehouseDTOs(warehouses), nil
}

// loadChainMembers collects the union of chains reachable from the given
// pickings via a bounded walk, reusing already loaded documents so every
// member is represented by a single instance. The roots are seeded first:
// a walk that reaches another root must get that same instance, not a
// second copy from the store.
func loadChainMembers(ctx context.Context, repo domain.PickingRepository, roots []*domain.Picking) ([]*domain.Picking, error) {
	members := make(map[string]*domain.Picking, len(roots))
	ordered := make([]*domain.Picking, 0, len(roots))
	for _, root := range roots {
		if _, ok := members[root.PickingID]; ok {
			continue
		}
		members[root.PickingID] = root
		ordered = append(ordered, root)
	}

	loader := func(ctx context.Context, pickingID string) (*domain.Picking, error) {
		if p, ok := members[pickingID]; ok {
			return p, nil
		}
		return repo.FindByID(ctx, pickingID)
	}

	walked := make(map[string]bool, len(roots))
	for _, root := range roots {
		if walked[root.PickingID] {
			continue
		}
		chain, err := domain.CollectChain(ctx, root, loader)
		if err != nil {
			return nil, err
		}
		for _, member := range chain {
			walked[member.PickingID] = true
			if _, ok := members[member.PickingID]; !ok {
				members[member.PickingID] = member
				ordered = append(ordered, member)
			}
		}
	}

	return ordered, nil
}

// originStates maps every move ID in the chain to its current state
func originStates(chain []*domain.Picking) map[string]domain.State {
	states := make(map[string]domain.State)
	for _, p := range chain {
		for _, move := range p.Moves {
			states[move.MoveID] = move.State
		}
	}
	return states
}
