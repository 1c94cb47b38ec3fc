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

// WarehouseChangeService implements the change-warehouse wizard. It
// re-targets a draft picking, and optionally its whole chain, onto
// another warehouse by cycling each member through cancel, draft,
// relocate and confirm, upstream first, then re-propagating serials
// and re-reserving across the rebuilt chain.
type WarehouseChangeService struct {
	pickings   domain.PickingRepository
	warehouses domain.WarehouseRepository
	logger     *logging.Logger
	validate   *validator.Validate
}

// NewWarehouseChangeService creates a new WarehouseChangeService
func NewWarehouseChangeService(
	pickings domain.PickingRepository,
	warehouses domain.WarehouseRepository,
	logger *logging.Logger,
) *WarehouseChangeService {
	return &WarehouseChangeService{
		pickings:   pickings,
		warehouses: warehouses,
		logger:     logger,
		validate:   validator.New(),
	}
}

// changePlan is the resolved input of a warehouse change: the target
// warehouse, the members in upstream-first order and the warehouses
// they currently belong to, keyed by warehouse ID.
type changePlan struct {
	source  *domain.Picking
	target  *domain.Warehouse
	ordered []*domain.Picking
	origins map[string]*domain.Warehouse
}

// ChangeWarehouse moves a picking, and with IncludeChained its entire
// chain, to the target warehouse. Every member is rewritten onto the
// equivalent operation type of the target; serials assigned before the
// change are carried over to matching moves downstream.
func (s *WarehouseChangeService) ChangeWarehouse(ctx context.Context, cmd ChangeWarehouseCommand) (*ChangeWarehouseResultDTO, error) {
	if appErr := validateCommand(s.validate, cmd); appErr != nil {
		return nil, appErr
	}

	plan, err := s.resolvePlan(ctx, cmd.PickingID, cmd.TargetWarehouseID, cmd.IncludeChained)
	if err != nil {
		return nil, err
	}
	sourceWarehouseID := plan.source.WarehouseID

	for _, member := range plan.ordered {
		fromWarehouse := plan.origins[member.WarehouseID]
		equivalent, err := s.equivalentOperationType(plan.target, fromWarehouse, member)
		if err != nil {
			return nil, err
		}

		from := member.State.String()
		if !member.State.IsCancelled() {
			if err := member.Cancel("warehouse change"); err != nil {
				return nil, mapDomainError(err)
			}
		}
		if err := member.BackToDraft(); err != nil {
			return nil, mapDomainError(err)
		}
		if err := member.RelocateTo(fromWarehouse, plan.target, equivalent); err != nil {
			return nil, mapDomainError(err)
		}
		if err := member.Confirm(); err != nil {
			return nil, mapDomainError(err)
		}
		s.logger.StateChange(ctx, "picking", member.PickingID, from, member.State.String())
	}

	propagation := domain.PropagateSerials(plan.ordered)
	if propagation.Missed > 0 {
		s.logger.Warn("Serial propagation incomplete",
			"pickingId", cmd.PickingID,
			"applied", propagation.Applied,
			"missed", propagation.Missed)
	}

	// Reserve upstream first so downstream members see the origins
	// they depend on already assigned.
	reserved := 0
	for _, member := range plan.ordered {
		reserved += member.TryReserve(originStates(plan.ordered))
	}

	if err := s.pickings.SaveAll(ctx, plan.ordered); err != nil {
		s.logger.WithError(err).Error("Failed to save pickings", "pickingId", cmd.PickingID)
		return nil, fmt.Errorf("failed to save pickings: %w", err)
	}

	s.logger.Event(ctx, "transfer.warehouse-changed", map[string]any{
		"pickingId":         cmd.PickingID,
		"targetWarehouseId": cmd.TargetWarehouseID,
		"members":           len(plan.ordered),
		"serialsApplied":    propagation.Applied,
		"serialsMissed":     propagation.Missed,
		"movesReserved":     reserved,
	})

	return &ChangeWarehouseResultDTO{
		SourceWarehouseID: sourceWarehouseID,
		TargetWarehouseID: plan.target.WarehouseID,
		Pickings:          ToPickingDTOs(plan.ordered),
		SerialsApplied:    propagation.Applied,
		SerialsMissed:     propagation.Missed,
		MovesReserved:     reserved,
	}, nil
}

// PreviewChangeWarehouse computes the rewrites a warehouse change would
// apply without mutating anything. It fails with the same errors the
// change itself would.
func (s *WarehouseChangeService) PreviewChangeWarehouse(ctx context.Context, query ChangeWarehousePreviewQuery) (*ChangeWarehousePreviewDTO, error) {
	if appErr := validateCommand(s.validate, query); appErr != nil {
		return nil, appErr
	}

	plan, err := s.resolvePlan(ctx, query.PickingID, query.TargetWarehouseID, query.IncludeChained)
	if err != nil {
		return nil, err
	}

	members := make([]PreviewMemberDTO, 0, len(plan.ordered))
	for _, member := range plan.ordered {
		fromWarehouse := plan.origins[member.WarehouseID]
		equivalent, err := s.equivalentOperationType(plan.target, fromWarehouse, member)
		if err != nil {
			return nil, err
		}

		plannedSource := plan.target.CounterpartLocation(member.SourceLocation, fromWarehouse)
		if equivalent.DefaultSourceLocation != nil {
			plannedSource = *equivalent.DefaultSourceLocation
		}
		plannedDest := plan.target.CounterpartLocation(member.DestLocation, fromWarehouse)
		if equivalent.DefaultDestLocation != nil {
			plannedDest = *equivalent.DefaultDestLocation
		}

		members = append(members, PreviewMemberDTO{
			PickingID:                member.PickingID,
			Name:                     member.Name,
			State:                    member.State.String(),
			WarehouseID:              member.WarehouseID,
			OperationTypeID:          member.OperationTypeID,
			PlannedOperationTypeID:   equivalent.OperationTypeID,
			PlannedOperationTypeName: equivalent.Name,
			PlannedSourceLocation:    ToLocationDTO(plannedSource),
			PlannedDestLocation:      ToLocationDTO(plannedDest),
		})
	}

	return &ChangeWarehousePreviewDTO{
		PickingID:         query.PickingID,
		TargetWarehouseID: query.TargetWarehouseID,
		IncludeChained:    query.IncludeChained,
		Members:           members,
	}, nil
}

// resolvePlan loads and validates everything a warehouse change needs:
// the source picking, the target warehouse, the member set in
// upstream-first order and the origin warehouse of every member.
func (s *WarehouseChangeService) resolvePlan(ctx context.Context, pickingID, targetWarehouseID string, includeChained bool) (*changePlan, error) {
	source, err := s.pickings.FindByID(ctx, pickingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get picking", "pickingId", pickingID)
		return nil, fmt.Errorf("failed to get picking: %w", err)
	}
	if source == nil {
		return nil, errors.ErrNotFoundWithID("picking", pickingID)
	}

	target, err := s.warehouses.FindByID(ctx, targetWarehouseID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get warehouse", "warehouseId", targetWarehouseID)
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	if target == nil {
		return nil, errors.ErrNotFoundWithID("warehouse", targetWarehouseID)
	}

	if target.WarehouseID == source.WarehouseID {
		return nil, errors.ErrValidation(
			fmt.Sprintf("picking %s already belongs to warehouse %s", source.PickingID, target.WarehouseID))
	}
	if !target.Active {
		return nil, errors.ErrValidation(
			fmt.Sprintf("target warehouse %s is not active", target.WarehouseID))
	}
	if target.TenantID != source.TenantID {
		return nil, errors.ErrValidation(
			fmt.Sprintf("target warehouse %s belongs to a different tenant", target.WarehouseID))
	}

	members := []*domain.Picking{source}
	if includeChained {
		walkStart := time.Now()
		members, err = loadChainMembers(ctx, s.pickings, members)
		if err != nil {
			return nil, mapDomainError(err)
		}
		s.logger.ChainWalk(ctx, source.PickingID, len(members), time.Since(walkStart))
	}

	var blocked []string
	for _, member := range members {
		if member.State.IsDone() {
			blocked = append(blocked, member.PickingID)
		}
	}
	if len(blocked) > 0 {
		return nil, errBlockedByDone(blocked)
	}

	origins := map[string]*domain.Warehouse{target.WarehouseID: target}
	for _, member := range members {
		if _, ok := origins[member.WarehouseID]; ok {
			continue
		}
		warehouse, err := s.warehouses.FindByID(ctx, member.WarehouseID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to get warehouse", "warehouseId", member.WarehouseID)
			return nil, fmt.Errorf("failed to get warehouse: %w", err)
		}
		if warehouse == nil {
			return nil, errors.ErrChainIntegrity(
				fmt.Sprintf("warehouse %s of picking %s is not known", member.WarehouseID, member.PickingID))
		}
		origins[member.WarehouseID] = warehouse
	}

	return &changePlan{
		source:  source,
		target:  target,
		ordered: domain.OrderUpstreamFirst(members),
		origins: origins,
	}, nil
}

// equivalentOperationType resolves the operation type a member will run
// under at the target warehouse. When the member's current operation
// type is no longer in the origin snapshot, matching falls back to the
// operation kind carried on the picking itself.
func (s *WarehouseChangeService) equivalentOperationType(target, origin *domain.Warehouse, member *domain.Picking) (domain.OperationType, error) {
	current, ok := origin.OperationTypeByID(member.OperationTypeID)
	if !ok {
		current = domain.OperationType{
			OperationTypeID: member.OperationTypeID,
			Code:            member.OperationKind,
		}
	}
	equivalent, err := target.EquivalentOperationType(current)
	if err != nil {
		return domain.OperationType{}, mapDomainError(err).WithDetail("pickingId", member.PickingID)
	}
	return equivalent, nil
}
