package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"recordhub-data/internal/repository"
	"recordhub-data/internal/service"
	"recordhub-data/internal/store"
)

const testTenant = "00000000-0000-0000-0000-000000000101"

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	logger := zap.NewNop()

	records := repository.NewMemoryRecordsRepo()
	fieldDefs := repository.NewMemoryFieldDefsRepo()
	stockEntries := repository.NewMemoryStockEntriesRepo()
	tenants := repository.NewMemoryTenantsRepo()

	fieldConfig := service.NewFieldConfigService(fieldDefs, logger)
	require.NoError(t, fieldConfig.SeedDefaults(context.Background(), testTenant))

	filter := service.NewSchemaFilter(fieldDefs, logger)
	recordSvc := service.NewRecordService(records, filter, logger)
	templates := service.NewTemplateService(records, fieldDefs, logger)
	importer := service.NewImportService(records, fieldDefs, 50, nil, logger)
	stats := service.NewStatsService(records, store.NewMemoryKV(), logger)
	stockSvc := service.NewStockEntryService(stockEntries, logger)
	tenantSvc := service.NewTenantService(tenants, fieldConfig, logger)

	router := NewRouter(logger)
	router.RegisterRecordRoutes(
		NewRecordsHandler(recordSvc, stats, logger),
		NewExchangeHandler(templates, importer, stats, logger))
	router.RegisterFieldConfigRoutes(NewFieldConfigHandler(fieldConfig, logger))
	router.RegisterStockEntryRoutes(NewStockEntriesHandler(stockSvc, logger))
	router.RegisterTenantRoutes(NewTenantsHandler(tenantSvc, logger))
	router.RegisterStatsRoutes(NewStatsHandler(stats, logger))
	router.RegisterHealthRoutes()
	return router
}

func doJSON(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", testTenant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) (bool, string, map[string]any) {
	t.Helper()
	var out struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Success, out.Message, out.Data
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ok, _, data := decodeResult(t, rec)
	assert.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestRecordLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/accounts", map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "Pune",
		"unknown_col":  "dropped silently",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ok, _, created := decodeResult(t, rec)
	require.True(t, ok)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.NotContains(t, created, "unknown_col")

	// 同自然键再次创建是 409
	rec = doJSON(t, router, http.MethodPost, "/api/v1/accounts", map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "Pune",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	ok, msg, _ := decodeResult(t, rec)
	assert.False(t, ok)
	assert.Contains(t, msg, "already exists")

	rec = doJSON(t, router, http.MethodGet, "/api/v1/accounts?filter[billing_city]=Pune", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, data := decodeResult(t, rec)
	assert.EqualValues(t, 1, data["total"])

	rec = doJSON(t, router, http.MethodPut, "/api/v1/accounts/"+id, map[string]any{
		"billing_city": "Mumbai",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	_, _, updated := decodeResult(t, rec)
	assert.Equal(t, "Mumbai", updated["billing_city"])

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/accounts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/accounts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateWithoutTenantIsBadRequest(t *testing.T) {
	router := newTestRouter(t)

	raw, err := json.Marshal(map[string]any{"account_name": "Acme Labs"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportEndpointRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	// 先下载模板拿到表头
	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/import-template", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NotEmpty(t, rows)
	headers := rows[0]

	// 按表头写两行数据回传
	out := excelize.NewFile()
	sheet := out.GetSheetName(0)
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, out.SetCellValue(sheet, cell, h))
	}
	values := map[string][]string{
		"Product Name": {"Widget", "Gadget"},
		"Category":     {"Hardware", "Hardware"},
	}
	for row := 0; row < 2; row++ {
		for i, h := range headers {
			v, ok := values[h]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, row+2)
			require.NoError(t, err)
			require.NoError(t, out.SetCellValue(sheet, cell, v[row]))
		}
	}
	var buf bytes.Buffer
	_, err = out.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Tenant-ID", testTenant)
	imp := httptest.NewRecorder()
	router.ServeHTTP(imp, req)

	require.Equal(t, http.StatusOK, imp.Code)
	ok, _, result := decodeResult(t, imp)
	require.True(t, ok)
	assert.EqualValues(t, 2, result["total"])
	assert.EqualValues(t, 2, result["imported"])
	assert.Empty(t, result["duplicates"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products", nil)
	_, _, data := decodeResult(t, rec)
	assert.EqualValues(t, 2, data["total"])
}

func TestImportEmptyWorkbookIsBadRequest(t *testing.T) {
	router := newTestRouter(t)

	out := excelize.NewFile()
	sheet := out.GetSheetName(0)
	require.NoError(t, out.SetCellValue(sheet, "A1", "Product Name"))
	var buf bytes.Buffer
	_, err := out.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Tenant-ID", testTenant)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNavigationStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/contacts", map[string]any{
		"first_name": "Asha",
		"email":      "asha@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/navigation-stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ok, _, data := decodeResult(t, rec)
	require.True(t, ok)
	assert.EqualValues(t, 1, data["contacts"])
	assert.EqualValues(t, 0, data["accounts"])
}
