package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/transfer-service/pkg/outbox/mongodb"
	"github.com/wms-platform/transfer-service/pkg/tenant"
)

type PickingRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	tenantHelper *tenant.RepositoryHelper
}

func NewPickingRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *PickingRepository {
	collection := db.Collection("pickings")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &PickingRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
		tenantHelper: tenant.NewRepositoryHelper(false),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *PickingRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "pickingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)

	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Save persists a picking with its domain events in a single transaction
func (r *PickingRepository) Save(ctx context.Context, picking *domain.Picking) error {
	return r.SaveAll(ctx, []*domain.Picking{picking})
}

// SaveAll persists a set of pickings together with every domain event
// they raised in one transaction. A chain action either lands completely
// or not at all.
func (r *PickingRepository) SaveAll(ctx context.Context, pickings []*domain.Picking) error {
	if len(pickings) == 0 {
		return nil
	}

	now := time.Now()
	for _, picking := range pickings {
		picking.UpdatedAt = now
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var outboxEvents []*outbox.OutboxEvent

		for _, picking := range pickings {
			opts := options.Update().SetUpsert(true)
			filter := bson.M{"pickingId": picking.PickingID}
			update := bson.M{"$set": picking}

			if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
				return nil, fmt.Errorf("failed to save picking %s: %w", picking.PickingID, err)
			}

			events, err := r.outboxEventsFor(sessCtx, picking)
			if err != nil {
				return nil, err
			}
			outboxEvents = append(outboxEvents, events...)
		}

		if len(outboxEvents) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return nil, fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		for _, picking := range pickings {
			picking.ClearDomainEvents()
		}

		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// outboxEventsFor converts the domain events of a picking into outbox
// entries carrying CloudEvents for the transfer events topic
func (r *PickingRepository) outboxEventsFor(ctx context.Context, picking *domain.Picking) ([]*outbox.OutboxEvent, error) {
	domainEvents := picking.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil, nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.WMSCloudEvent
		switch e := event.(type) {
		case *domain.TransferCreatedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		case *domain.TransferCancelledEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		case *domain.TransferReturnedToDraftEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		case *domain.TransferConfirmedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		case *domain.TransferReservedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		case *domain.TransferWarehouseChangedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		case *domain.TransferSerialsPropagatedEvent:
			cloudEvent = r.eventFactory.CreateEvent(ctx, e.EventType(), "picking/"+e.PickingID, e)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			picking.PickingID,
			"Picking",
			kafka.Topics.TransfersEvents,
			cloudEvent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}

		outboxEvents = append(outboxEvents, outboxEvent)
	}

	return outboxEvents, nil
}

func (r *PickingRepository) FindByID(ctx context.Context, pickingID string) (*domain.Picking, error) {
	filter := bson.M{"pickingId": pickingID}
	filter = r.tenantHelper.WithTenantFilterOptional(ctx, filter)

	var picking domain.Picking
	err := r.collection.FindOne(ctx, filter).Decode(&picking)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &picking, err
}

func (r *PickingRepository) FindByIDs(ctx context.Context, pickingIDs []string) ([]*domain.Picking, error) {
	filter := bson.M{"pickingId": bson.M{"$in": pickingIDs}}
	filter = r.tenantHelper.WithTenantFilterOptional(ctx, filter)

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var pickings []*domain.Picking
	err = cursor.All(ctx, &pickings)
	return pickings, err
}

func (r *PickingRepository) FindByWarehouse(ctx context.Context, warehouseID string, states []domain.State, limit int) ([]*domain.Picking, error) {
	filter := bson.M{}
	if warehouseID != "" {
		filter["warehouseId"] = warehouseID
	}
	if len(states) > 0 {
		filter["state"] = bson.M{"$in": states}
	}
	filter = r.tenantHelper.WithTenantFilterOptional(ctx, filter)

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var pickings []*domain.Picking
	err = cursor.All(ctx, &pickings)
	return pickings, err
}

func (r *PickingRepository) FindByState(ctx context.Context, state domain.State, limit int) ([]*domain.Picking, error) {
	filter := bson.M{"state": state}
	filter = r.tenantHelper.WithTenantFilterOptional(ctx, filter)

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var pickings []*domain.Picking
	err = cursor.All(ctx, &pickings)
	return pickings, err
}

// UpsertSnapshot replaces the stored picking with an upstream snapshot.
// Snapshots are the product of events elsewhere, so none are emitted.
func (r *PickingRepository) UpsertSnapshot(ctx context.Context, picking *domain.Picking) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"pickingId": picking.PickingID}

	if _, err := r.collection.ReplaceOne(ctx, filter, picking, opts); err != nil {
		return fmt.Errorf("failed to upsert picking snapshot: %w", err)
	}
	return nil
}

func (r *PickingRepository) Delete(ctx context.Context, pickingID string) error {
	filter := bson.M{"pickingId": pickingID}
	filter = r.tenantHelper.WithTenantFilterOptional(ctx, filter)

	_, err := r.collection.DeleteOne(ctx, filter)
	return err
}

// GetOutboxRepository returns the outbox repository for this service
func (r *PickingRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}
