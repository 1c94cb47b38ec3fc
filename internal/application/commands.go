package application

// CancelToDraftCommand cancels a batch of pickings and returns them to
// draft. IncludeChained extends the batch to every picking chained to a
// selected one.
type CancelToDraftCommand struct {
	PickingIDs     []string `validate:"required,min=1,dive,required"`
	IncludeChained bool
	Reason         string `validate:"omitempty,max=256"`
}

// CancelPickingCommand cancels a single picking without resetting it
type CancelPickingCommand struct {
	PickingID string `validate:"required"`
	Reason    string `validate:"omitempty,max=256"`
}

// BackToDraftCommand returns a cancelled picking to draft
type BackToDraftCommand struct {
	PickingID string `validate:"required"`
}

// ConfirmPickingCommand confirms a draft picking and attempts reservation
type ConfirmPickingCommand struct {
	PickingID string `validate:"required"`
}

// ChangeWarehouseCommand reassigns a picking, and optionally its whole
// chain, to a different warehouse
type ChangeWarehouseCommand struct {
	PickingID         string `validate:"required"`
	TargetWarehouseID string `validate:"required"`
	IncludeChained    bool
}

// GetPickingQuery fetches a single picking by ID
type GetPickingQuery struct {
	PickingID string
}

// ListPickingsQuery lists pickings with optional filters
type ListPickingsQuery struct {
	State       string
	WarehouseID string
	Limit       int
}

// ChangeWarehousePreviewQuery computes the affected pickings and planned
// rewrites of a warehouse change without applying anything
type ChangeWarehousePreviewQuery struct {
	PickingID         string `validate:"required"`
	TargetWarehouseID string `validate:"required"`
	IncludeChained    bool
}

// GetWarehouseQuery fetches a single warehouse by ID
type GetWarehouseQuery struct {
	WarehouseID string
}
