package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/tenant"
)

// WarehouseRepository stores warehouse reference data. Warehouses are
// owned by the warehouse service; this service keeps a queryable copy
// fed by snapshot events.
type WarehouseRepository struct {
	collection   *mongo.Collection
	tenantHelper *tenant.RepositoryHelper
}

func NewWarehouseRepository(db *mongo.Database) *WarehouseRepository {
	repo := &WarehouseRepository{
		collection:   db.Collection("warehouses"),
		tenantHelper: tenant.NewRepositoryHelper(false),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *WarehouseRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "warehouseId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *WarehouseRepository) Save(ctx context.Context, warehouse *domain.Warehouse) error {
	warehouse.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"warehouseId": warehouse.WarehouseID}
	update := bson.M{"$set": warehouse}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save warehouse %s: %w", warehouse.WarehouseID, err)
	}
	return nil
}

func (r *WarehouseRepository) FindByID(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	filter := bson.M{"warehouseId": warehouseID}
	filter = r.tenantHelper.WithTenantFilterOptional(ctx, filter)

	var warehouse domain.Warehouse
	err := r.collection.FindOne(ctx, filter).Decode(&warehouse)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &warehouse, err
}

func (r *WarehouseRepository) FindAll(ctx context.Context) ([]*domain.Warehouse, error) {
	filter := r.tenantHelper.WithTenantFilterOptional(ctx, bson.M{})

	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var warehouses []*domain.Warehouse
	err = cursor.All(ctx, &warehouses)
	return warehouses, err
}

// UpsertSnapshot replaces the stored warehouse with an upstream snapshot
func (r *WarehouseRepository) UpsertSnapshot(ctx context.Context, warehouse *domain.Warehouse) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"warehouseId": warehouse.WarehouseID}

	if _, err := r.collection.ReplaceOne(ctx, filter, warehouse, opts); err != nil {
		return fmt.Errorf("failed to upsert warehouse snapshot: %w", err)
	}
	return nil
}
