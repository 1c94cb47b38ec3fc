package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/transfer-service/internal/domain"
	apperrors "github.com/wms-platform/transfer-service/pkg/errors"
)

// mapDomainError translates domain sentinels into transport errors with
// the right code and status. Unknown errors fall through to the shared
// message-based mapping.
func mapDomainError(err error) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrPickingDone), errors.Is(err, domain.ErrMoveDone):
		return apperrors.ErrTerminalState(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrChainBroken),
		errors.Is(err, domain.ErrNoEquivalentOperationType),
		errors.Is(err, domain.ErrOperationTypeNotFound):
		return apperrors.ErrChainIntegrity(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrWarehouseNotFound):
		return apperrors.ErrNotFound("warehouse").Wrap(err)
	case errors.Is(err, domain.ErrPickingNotCancelled),
		errors.Is(err, domain.ErrPickingNotDraft),
		errors.Is(err, domain.ErrNoMoves),
		errors.Is(err, domain.ErrMoveNotFound),
		errors.Is(err, domain.ErrMoveNotTracked),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidStateTransition):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	default:
		return apperrors.MapDomainError(err)
	}
}

// errBlockedByDone names the done documents that block a batch action
func errBlockedByDone(pickingIDs []string) *apperrors.AppError {
	return apperrors.ErrTerminalState(
		fmt.Sprintf("pickings in done state cannot be modified: %s", strings.Join(pickingIDs, ", ")),
	).WithDetail("blockingPickingIds", strings.Join(pickingIDs, ","))
}

// errPickingsNotFound names the identifiers that did not resolve
func errPickingsNotFound(pickingIDs []string) *apperrors.AppError {
	return apperrors.ErrNotFound("picking").
		WithDetail("pickingIds", strings.Join(pickingIDs, ","))
}

// validateCommand runs struct validation on an incoming command
func validateCommand(v *validator.Validate, cmd interface{}) *apperrors.AppError {
	err := v.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		return apperrors.ErrValidationWithFields("invalid command", fields)
	}
	return apperrors.ErrValidation(err.Error())
}
