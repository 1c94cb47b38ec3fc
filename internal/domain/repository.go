package domain

import "context"

// PickingRepository defines the interface for picking persistence
type PickingRepository interface {
	Save(ctx context.Context, picking *Picking) error
	SaveAll(ctx context.Context, pickings []*Picking) error
	FindByID(ctx context.Context, pickingID string) (*Picking, error)
	FindByIDs(ctx context.Context, pickingIDs []string) ([]*Picking, error)
	FindByWarehouse(ctx context.Context, warehouseID string, states []State, limit int) ([]*Picking, error)
	FindByState(ctx context.Context, state State, limit int) ([]*Picking, error)
	UpsertSnapshot(ctx context.Context, picking *Picking) error
	Delete(ctx context.Context, pickingID string) error
}

// WarehouseRepository defines the interface for warehouse persistence
type WarehouseRepository interface {
	Save(ctx context.Context, warehouse *Warehouse) error
	FindByID(ctx context.Context, warehouseID string) (*Warehouse, error)
	FindAll(ctx context.Context) ([]*Warehouse, error)
	UpsertSnapshot(ctx context.Context, warehouse *Warehouse) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
