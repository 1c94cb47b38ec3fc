package tenant

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// RepositoryHelper provides tenant-aware query building for MongoDB repositories.
// Embed this in your repository structs to add tenant filtering capabilities.
type RepositoryHelper struct {
	// EnforceTenant when true, returns an error if tenant context is missing
	EnforceTenant bool
}

// NewRepositoryHelper creates a new RepositoryHelper
func NewRepositoryHelper(enforceTenant bool) *RepositoryHelper {
	return &RepositoryHelper{
		EnforceTenant: enforceTenant,
	}
}

// WithTenantFilter adds tenant filtering to a MongoDB query filter.
// It extracts tenant context from the context and adds appropriate filter conditions.
func (h *RepositoryHelper) WithTenantFilter(ctx context.Context, filter bson.M) (bson.M, error) {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return nil, err
		}
		// Return original filter if tenant context is not required
		return filter, nil
	}

	return mergeTenantFilter(filter, tc), nil
}

// WithTenantFilterOptional adds tenant filtering without requiring tenant context.
// The filter is returned unchanged when no tenant is in context.
func (h *RepositoryHelper) WithTenantFilterOptional(ctx context.Context, filter bson.M) bson.M {
	return mergeTenantFilter(filter, FromContextOptional(ctx))
}

func mergeTenantFilter(filter bson.M, tc *Context) bson.M {
	// Copy so the caller's filter is not modified
	tenantFilter := bson.M{}
	for k, v := range filter {
		tenantFilter[k] = v
	}

	if tc.TenantID != "" {
		tenantFilter["tenantId"] = tc.TenantID
	}
	if tc.WarehouseID != "" {
		tenantFilter["warehouseId"] = tc.WarehouseID
	}

	return tenantFilter
}

// ValidateOwnership verifies that a resource belongs to the tenant in context.
// Use this after fetching a resource to ensure the caller has access.
func (h *RepositoryHelper) ValidateOwnership(ctx context.Context, resourceTenantID, resourceWarehouseID string) error {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return err
		}
		return nil
	}

	return tc.ValidateOwnership(resourceTenantID, resourceWarehouseID)
}

// ExtractTenantFields extracts tenant fields from context for setting on new entities.
// Returns default values if context is missing.
func (h *RepositoryHelper) ExtractTenantFields(ctx context.Context) (tenantID, warehouseID string) {
	tc := FromContextOptional(ctx)

	tenantID = tc.TenantID
	if tenantID == "" {
		tenantID = DefaultTenantID
	}

	warehouseID = tc.WarehouseID
	if warehouseID == "" {
		warehouseID = DefaultWarehouseID
	}

	return
}

// TenantIndexes returns standard MongoDB index definitions for tenant fields.
// Add these to your collection indexes for efficient tenant-scoped queries.
func TenantIndexes() []bson.D {
	return []bson.D{
		{{Key: "tenantId", Value: 1}},
		{{Key: "tenantId", Value: 1}, {Key: "warehouseId", Value: 1}},
	}
}
