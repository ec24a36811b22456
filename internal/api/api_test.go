package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/api/middleware"
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/andresuchdata/ecoagent/backend-go/internal/storage"
	"github.com/andresuchdata/ecoagent/backend-go/internal/supplier"
	"github.com/andresuchdata/ecoagent/backend-go/internal/wasterisk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	inventoryCSV = `product_id,location_id,quantity,expiry_date,days_to_expiry,unit_cost,total_value
A,S1,100,2024-06-10,5,10,1000
`
	salesCSV = `product_id,store_id,date,units_sold,price,promotion_active,day_of_week,temperature
A,S1,2024-06-01,10,12,false,Saturday,21
A,S1,2024-06-02,20,12,false,Sunday,22
A,S1,2024-06-03,15,12,true,Monday,20
`
	wasteCSV = `store_id,date,product_id,waste_quantity,reason,disposal_method,waste_cost
S1,2024-05-01,A,4,expired,landfill,40
`
	weatherCSV = `store_id,date,temp_high,temp_low,precipitation,humidity,special_event
S1,2024-06-01,14,6,5,60,none
S1,2024-06-02,12,8,2,65,negative
`
	suppliersCSV = `product_id,supplier_id,supplier_name,location
P1,S-A,Alpha,Germany
P1,S-B,Beta,France
P2,S-D,Delta,Germany
`
	esgCSV = `supplier_id,provider,overall_score,risk_score,rating,reporting_year
S-A,EcoVadis,72,,,2024
S-B,Sustainalytics,,40,,2024
S-D,Moodys,,,,2024
`
	emissionsCSV = `supplier_id,scope1_emissions,scope2_emissions,water_usage_m3,reporting_year
S-A,100,50,1000,2024
S-B,300,100,3000,2024
`
	auditsCSV = `supplier_id,score,audit_date
S-A,80,2024-01-10
S-B,90,2024-02-01
`
	purchasesCSV = `supplier_id,product_id,purchase_date,quantity,unit_price
S-A,P1,2024-05-01,100,2.5
S-A,P7,2024-05-03,10,9
`
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := recordstore.NewMemoryStore().
		PutCSV(domain.DatasetInventory, inventoryCSV).
		PutCSV(domain.DatasetSales, salesCSV).
		PutCSV(domain.DatasetWaste, wasteCSV).
		PutCSV(domain.DatasetWeather, weatherCSV).
		PutCSV(domain.DatasetSuppliers, suppliersCSV).
		PutCSV(domain.DatasetSupplierESG, esgCSV).
		PutCSV(domain.DatasetSupplierEmissions, emissionsCSV).
		PutCSV(domain.DatasetSupplierAudits, auditsCSV).
		PutCSV(domain.DatasetSupplierPurchases, purchasesCSV)

	scfg := supplier.DefaultConfig()
	scfg.Now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }

	local, err := storage.NewLocalClient(t.TempDir())
	require.NoError(t, err)
	objects := recordstore.NewCSVStore(local, nil, recordstore.CSVOptions{Prefix: "input", Attempts: 1})

	return NewRouter(&Services{
		WasteRisk: service.NewWasteRiskService(wasterisk.NewEngine(store, wasterisk.DefaultConfig())),
		Suppliers: service.NewSupplierService(supplier.NewScorer(store, scfg), store),
		Datasets:  service.NewDatasetService(objects, objects),
		Impact:    service.NewImpactService(nil),
	}, nil)
}

func do(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func get(t *testing.T, router http.Handler, url string) (*httptest.ResponseRecorder, map[string]interface{}) {
	return do(t, router, httptest.NewRequest(http.MethodGet, url, nil))
}

func TestHealth(t *testing.T) {
	w, body := get(t, newTestRouter(t), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w, _ := do(t, newTestRouter(t), req)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestWasteRisk(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/api/v1/waste-risk/A")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", body["status"])
	report := body["report"].(map[string]interface{})
	assert.Equal(t, 2727.5, report["waste_cost_impact"])

	w, body = get(t, router, "/api/v1/waste-risk/Z")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no_data", body["error"].(map[string]interface{})["kind"])

	w, body = get(t, router, "/api/v1/waste-risk")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all", body["product_id_or_all"])
}

func TestSupplierScore(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/api/v1/suppliers/S-A/score")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "scored", body["status"])
	assert.Equal(t, 72.0, body["esg_component"])

	w, body = get(t, router, "/api/v1/suppliers/S-Z/score")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", body["status"])
}

func TestSupplierRank(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/api/v1/suppliers/rank?product_id=P1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", body["status"])
	ranked := body["ranked"].([]interface{})
	require.Len(t, ranked, 2)
	assert.Equal(t, "S-A", ranked[0].(map[string]interface{})["supplier_id"])

	w, _ = get(t, router, "/api/v1/suppliers/rank?product_id=P1&location=germany")
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = get(t, router, "/api/v1/suppliers/rank?product_id=P2")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "error", body["status"])

	w, _ = get(t, router, "/api/v1/suppliers/rank?product_id=P9")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSupplierPurchases(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/api/v1/suppliers/S-A/purchases?product_id=p1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1.0, body["count"])

	w, _ = get(t, router, "/api/v1/suppliers/S-B/purchases")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func uploadRequest(t *testing.T, url, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDatasets(t *testing.T) {
	router := newTestRouter(t)

	w, body := do(t, router, uploadRequest(t, "/api/v1/datasets/sales", "sales.csv", salesCSV))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 3.0, body["rows"])

	w, body = get(t, router, "/api/v1/datasets/sales?key=A")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3.0, body["count"])

	w, _ = get(t, router, "/api/v1/datasets")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = get(t, router, "/api/v1/datasets/weather")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w, _ = get(t, router, "/api/v1/datasets/recipes")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/sales", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/sales/import", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w, _ = do(t, router, httptest.NewRequest(http.MethodPost, "/api/v1/datasets/sync", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestImpactUsage(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"entries":[{"agent":"waste_optimization","tokens":120},{"agent":"supplier","tokens":80}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/impact/usage", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "turn-1")
	w, body := do(t, router, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "turn-1", body["request_id"])
	assert.Equal(t, 200.0, body["total_tokens"])

	req = httptest.NewRequest(http.MethodPost, "/api/v1/impact/usage", strings.NewReader(`{"entries":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = do(t, router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)
	assert.False(t, all)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
