package cloudevents

import (
	"github.com/wms-platform/transfer-service/pkg/tenant"
)

// CloudEvents extension attribute names for WMS tenant context
const (
	// Tenant context extensions (used in CloudEvents and message headers)
	ExtTenantID    = "wmstenantid"
	ExtWarehouseID = "wmswarehouseid"

	// Business context extensions
	ExtCorrelationID = "wmscorrelationid"
)

// HTTP header names for WMS tenant context
const (
	HeaderTenantID      = "X-WMS-Tenant-ID"
	HeaderWarehouseID   = "X-WMS-Warehouse-ID"
	HeaderCorrelationID = "X-WMS-Correlation-ID"
)

// SetTenantContext sets tenant context extensions on a WMSCloudEvent
func (e *WMSCloudEvent) SetTenantContext(tc *tenant.Context) {
	if tc == nil {
		return
	}
	e.TenantID = tc.TenantID
	e.WarehouseID = tc.WarehouseID
}

// GetTenantContext extracts tenant context from a WMSCloudEvent
func (e *WMSCloudEvent) GetTenantContext() *tenant.Context {
	return &tenant.Context{
		TenantID:    e.TenantID,
		WarehouseID: e.WarehouseID,
	}
}

// WithTenantContext is a builder method that sets tenant context and returns the event
func (e *WMSCloudEvent) WithTenantContext(tc *tenant.Context) *WMSCloudEvent {
	e.SetTenantContext(tc)
	return e
}

// WithTenant sets individual tenant fields and returns the event
func (e *WMSCloudEvent) WithTenant(tenantID, warehouseID string) *WMSCloudEvent {
	e.TenantID = tenantID
	e.WarehouseID = warehouseID
	return e
}

// WithCorrelation sets the correlation ID and returns the event
func (e *WMSCloudEvent) WithCorrelation(correlationID string) *WMSCloudEvent {
	e.CorrelationID = correlationID
	return e
}

// HasTenantContext returns true if the tenant extension is set
func (e *WMSCloudEvent) HasTenantContext() bool {
	return e.TenantID != ""
}

// ValidateTenantContext validates that required tenant context is present
func (e *WMSCloudEvent) ValidateTenantContext() error {
	tc := e.GetTenantContext()
	return tc.Validate()
}
