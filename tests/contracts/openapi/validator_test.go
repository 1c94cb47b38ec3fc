package openapi_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms-platform/transfer-service/pkg/contracts/openapi"
)

const openAPISpecPath = "../../../docs/openapi.yaml"

// baseURL matches the server entry of the spec. The router derives a host
// constraint from it, so test requests must carry the same host.
const baseURL = "http://localhost:8010"

func loadValidator(t *testing.T) *openapi.Validator {
	t.Helper()

	absPath, err := filepath.Abs(openAPISpecPath)
	require.NoError(t, err)

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		t.Skipf("OpenAPI spec not found at %s", absPath)
	}

	validator, err := openapi.NewValidator(absPath)
	require.NoError(t, err, "Failed to create validator")

	return validator
}

func TestOpenAPISpecIsValid(t *testing.T) {
	validator := loadValidator(t)

	doc := validator.GetDocument()
	require.NotNil(t, doc)
	assert.Equal(t, "Transfer Service API", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
}

func TestOpenAPIHasRequiredPaths(t *testing.T) {
	validator := loadValidator(t)

	requiredPaths := []string{
		"/health",
		"/ready",
		"/api/v1/pickings",
		"/api/v1/pickings/cancel-to-draft",
		"/api/v1/pickings/{pickingId}",
		"/api/v1/pickings/{pickingId}/cancel",
		"/api/v1/pickings/{pickingId}/back-to-draft",
		"/api/v1/pickings/{pickingId}/confirm",
		"/api/v1/pickings/{pickingId}/change-warehouse",
		"/api/v1/pickings/{pickingId}/change-warehouse/preview",
		"/api/v1/warehouses",
		"/api/v1/warehouses/{warehouseId}",
	}

	paths := validator.GetPaths()
	for _, reqPath := range requiredPaths {
		found := false
		for _, p := range paths {
			if p == reqPath {
				found = true
				break
			}
		}
		assert.True(t, found, "Missing required path %s", reqPath)
	}
}

func TestValidateRequestAgainstSpec(t *testing.T) {
	validator := loadValidator(t)

	newJSONRequest := func(method, target, body string) *http.Request {
		var reader *bytes.Buffer
		if body != "" {
			reader = bytes.NewBufferString(body)
		} else {
			reader = bytes.NewBuffer(nil)
		}
		req := httptest.NewRequest(method, target, reader)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req
	}

	t.Run("valid cancel-to-draft request", func(t *testing.T) {
		req := newJSONRequest(http.MethodPost, baseURL+"/api/v1/pickings/cancel-to-draft",
			`{"pickingIds": ["PICK-0001", "PICK-0002"], "includeChained": true, "reason": "customer changed the delivery date"}`)
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("cancel-to-draft with empty pickingIds", func(t *testing.T) {
		req := newJSONRequest(http.MethodPost, baseURL+"/api/v1/pickings/cancel-to-draft",
			`{"pickingIds": []}`)
		assert.Error(t, validator.ValidateRequest(req))
	})

	t.Run("cancel-to-draft without body", func(t *testing.T) {
		req := newJSONRequest(http.MethodPost, baseURL+"/api/v1/pickings/cancel-to-draft", "")
		assert.Error(t, validator.ValidateRequest(req))
	})

	t.Run("valid change-warehouse request", func(t *testing.T) {
		req := newJSONRequest(http.MethodPost, baseURL+"/api/v1/pickings/PICK-0001/change-warehouse",
			`{"targetWarehouseId": "WH-002", "includeChained": true}`)
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("change-warehouse without target warehouse", func(t *testing.T) {
		req := newJSONRequest(http.MethodPost, baseURL+"/api/v1/pickings/PICK-0001/change-warehouse",
			`{"includeChained": true}`)
		assert.Error(t, validator.ValidateRequest(req))
	})

	t.Run("valid change-warehouse preview", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			baseURL+"/api/v1/pickings/PICK-0001/change-warehouse/preview?targetWarehouseId=WH-002&includeChained=true", nil)
		req.Header.Set("Accept", "application/json")
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("preview requires targetWarehouseId", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			baseURL+"/api/v1/pickings/PICK-0001/change-warehouse/preview", nil)
		req.Header.Set("Accept", "application/json")
		assert.Error(t, validator.ValidateRequest(req))
	})

	t.Run("valid list query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			baseURL+"/api/v1/pickings?state=draft&warehouseId=WH-001&limit=50", nil)
		req.Header.Set("Accept", "application/json")
		assert.NoError(t, validator.ValidateRequest(req))
	})

	t.Run("list with unknown state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/pickings?state=archived", nil)
		req.Header.Set("Accept", "application/json")
		assert.Error(t, validator.ValidateRequest(req))
	})

	t.Run("list with excessive limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/pickings?limit=5000", nil)
		req.Header.Set("Accept", "application/json")
		assert.Error(t, validator.ValidateRequest(req))
	})
}

func TestValidateResponseAgainstSpec(t *testing.T) {
	validator := loadValidator(t)

	// recordResponse builds an *http.Response the way handler tests capture
	// one from the recorder.
	recordResponse := func(status int, body string) *http.Response {
		rec := httptest.NewRecorder()
		rec.Header().Set("Content-Type", "application/json")
		rec.WriteHeader(status)
		rec.WriteString(body)
		return rec.Result()
	}

	t.Run("picking response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/pickings/PICK-0001", nil)
		req.Header.Set("Accept", "application/json")

		responseBody := `{
			"pickingId": "PICK-0001",
			"name": "WH1/INT/00042",
			"tenantId": "tenant-001",
			"warehouseId": "WH-001",
			"operationTypeId": "OT-WH1-INT",
			"operationKind": "internal",
			"state": "confirmed",
			"sourceLocation": {"locationId": "LOC-WH1-STOCK", "name": "WH1/Stock", "usage": "internal", "warehouseId": "WH-001"},
			"destLocation": {"locationId": "LOC-WH1-OUT", "name": "WH1/Output", "usage": "internal", "warehouseId": "WH-001"},
			"moves": [
				{
					"moveId": "MOVE-0001-1",
					"sku": "SKU-001",
					"productName": "Steel bracket",
					"quantity": "5",
					"reservedQty": "5",
					"tracking": "serial",
					"lotSerial": "SN-0042",
					"state": "confirmed",
					"procureMethod": "make_to_stock",
					"propagateCancel": true,
					"scrapped": false,
					"sourceLocation": {"locationId": "LOC-WH1-STOCK", "name": "WH1/Stock", "usage": "internal", "warehouseId": "WH-001"},
					"destLocation": {"locationId": "LOC-WH1-OUT", "name": "WH1/Output", "usage": "internal", "warehouseId": "WH-001"}
				},
				{
					"moveId": "MOVE-0001-2",
					"sku": "SKU-002",
					"quantity": "2.5",
					"reservedQty": "0",
					"tracking": "none",
					"state": "confirmed",
					"procureMethod": "make_to_order"
				}
			],
			"prevPickingIds": ["PICK-0900"],
			"createdAt": "2026-03-14T09:30:00Z",
			"updatedAt": "2026-03-14T10:15:00Z"
		}`

		resp := recordResponse(http.StatusOK, responseBody)
		assert.NoError(t, validator.ValidateResponse(req, resp))
	})

	t.Run("cancel-to-draft result response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, baseURL+"/api/v1/pickings/cancel-to-draft",
			bytes.NewBufferString(`{"pickingIds": ["PICK-0001"]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		responseBody := `{
			"pickings": [
				{
					"pickingId": "PICK-0001",
					"name": "WH1/INT/00042",
					"warehouseId": "WH-001",
					"state": "draft",
					"moves": [],
					"createdAt": "2026-03-14T09:30:00Z",
					"updatedAt": "2026-03-14T10:15:00Z"
				}
			],
			"cascadedMoves": 2
		}`

		resp := recordResponse(http.StatusOK, responseBody)
		assert.NoError(t, validator.ValidateResponse(req, resp))
	})

	t.Run("not found error response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/pickings/PICK-9999", nil)
		req.Header.Set("Accept", "application/json")

		responseBody := `{
			"code": "RESOURCE_NOT_FOUND",
			"message": "picking not found",
			"details": {"id": "PICK-9999"},
			"requestId": "req-42",
			"timestamp": "2026-03-14T10:15:00Z",
			"path": "/api/v1/pickings/PICK-9999"
		}`

		resp := recordResponse(http.StatusNotFound, responseBody)
		assert.NoError(t, validator.ValidateResponse(req, resp))
	})

	t.Run("picking response without moves", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, baseURL+"/api/v1/pickings/PICK-0001", nil)
		req.Header.Set("Accept", "application/json")

		responseBody := `{
			"pickingId": "PICK-0001",
			"name": "WH1/INT/00042",
			"warehouseId": "WH-001",
			"state": "confirmed",
			"createdAt": "2026-03-14T09:30:00Z",
			"updatedAt": "2026-03-14T10:15:00Z"
		}`

		resp := recordResponse(http.StatusOK, responseBody)
		assert.Error(t, validator.ValidateResponse(req, resp),
			"a picking without its moves should fail contract validation")
	})
}
