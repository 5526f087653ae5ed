package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/infrastructure/events"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()

	ds := memory.NewDataset(8, 16)

	addProduct := func(id entities.ProductID, kind entities.ProductKind) {
		p, err := entities.NewProduct(id, string(id), string(id), kind, "kg")
		require.NoError(t, err)
		ds.AddProduct(*p)
	}
	addProduct("PIZZA", entities.FinishedGood)
	addProduct("DOUGH", entities.Intermediate)
	addProduct("FLOUR", entities.RawMaterial)

	addVersion := func(id entities.BOMID, productID entities.ProductID, num int, from string, to *string, output float64) {
		fromDate, err := time.Parse("2006-01-02", from)
		require.NoError(t, err)
		var toDate *time.Time
		if to != nil {
			d, err := time.Parse("2006-01-02", *to)
			require.NoError(t, err)
			toDate = &d
		}
		v, err := entities.NewBOMVersion(id, productID, num, entities.StatusActive, fromDate, toDate, decimal.NewFromFloat(output), "kg")
		require.NoError(t, err)
		ds.AddVersion(*v)
	}
	june30 := "2024-06-30"
	addVersion("BOM-PIZZA-1", "PIZZA", 1, "2024-01-01", &june30, 10)
	addVersion("BOM-PIZZA-2", "PIZZA", 2, "2024-07-01", nil, 10)
	addVersion("BOM-DOUGH-1", "DOUGH", 1, "2024-01-01", nil, 1)

	addLine := func(id string, bomID entities.BOMID, componentID entities.ProductID, qty float64, seq int) {
		item, err := entities.NewBOMLineItem(id, bomID, componentID, decimal.NewFromFloat(qty), "kg", decimal.Zero, seq)
		require.NoError(t, err)
		ds.AddLineItem(*item)
	}
	addLine("L1", "BOM-PIZZA-1", "DOUGH", 6, 10)
	addLine("L2", "BOM-PIZZA-2", "DOUGH", 7, 10)
	addLine("L3", "BOM-PIZZA-2", "FLOUR", 0.5, 20)
	addLine("L4", "BOM-DOUGH-1", "FLOUR", 0.6, 10)

	store := events.NewInMemoryEventStore(nil)
	svc := appservices.NewBOMService(ds, ds, ds, store, nil, 0)
	handler := NewHandler(StaticProvider{Svc: svc})
	return NewRouter(handler, zap.NewNop())
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestTimelineEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/products/PIZZA/timeline?as_of=2024-09-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "BOM-PIZZA-2", data["active_bom_id"])
	assert.Len(t, data["versions"], 2)
	assert.Empty(t, data["overlapping_bom_ids"])
	assert.Empty(t, data["gaps"])
}

func TestTimelineEndpointUnknownProduct(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/products/NOPE/timeline", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimelineEndpointBadDate(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/products/PIZZA/timeline?as_of=september", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductExplosionEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/products/PIZZA/explosion?as_of=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "BOM-PIZZA-1", data["root_bom_id"])
	assert.Equal(t, false, data["has_cycles"])

	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	dough := items[0].(map[string]interface{})
	assert.Equal(t, "DOUGH", dough["component_id"])
	assert.Equal(t, "0.6", dough["cumulative_quantity"])

	children := dough["children"].([]interface{})
	require.Len(t, children, 1)
	flour := children[0].(map[string]interface{})
	assert.Equal(t, "FLOUR", flour["component_id"])
	assert.Equal(t, "0.36", flour["cumulative_quantity"])
}

func TestBOMExplosionEndpointUnknownID(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/boms/NOPE/explosion", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRawMaterialsEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/boms/BOM-PIZZA-2/raw-materials?as_of=2024-09-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	materials := data["raw_materials"].([]interface{})
	require.Len(t, materials, 1)

	flour := materials[0].(map[string]interface{})
	assert.Equal(t, "FLOUR", flour["component_id"])
	// 7 * 0.6 / 10 + 0.5 / 10
	assert.Equal(t, "0.47", flour["total_quantity"])
	assert.Equal(t, false, flour["unit_mismatch"])
}

func TestScaleEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/api/v1/boms/BOM-PIZZA-2/scale", map[string]string{
		"new_output_quantity": "25",
		"rounding_increment":  "0.001",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2.5", data["scale_factor"])

	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	dough := items[0].(map[string]interface{})
	assert.Equal(t, "DOUGH", dough["component_id"])
	assert.Equal(t, "17.5", dough["new_quantity"])
}

func TestScaleEndpointUnknownBOM(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/boms/NOPE/scale", map[string]string{
		"new_output_quantity": "25",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScaleEndpointInvalidFactor(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/boms/BOM-PIZZA-2/scale", map[string]string{
		"multiplier": "-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiffEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/boms/diff?before=BOM-PIZZA-1&after=BOM-PIZZA-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["added"])
	assert.Equal(t, float64(1), summary["modified"])
	assert.Equal(t, float64(0), summary["removed"])
}

func TestDiffEndpointMissingParams(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/boms/diff?before=BOM-PIZZA-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestYieldEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/boms/BOM-PIZZA-2/yield", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "BOM-PIZZA-2", data["bom_id"])
	assert.Equal(t, "7.5", data["total_input"])
}

func TestAuthorVersionEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/api/v1/products/PIZZA/versions", map[string]string{
		"effective_from":  "2025-01-01",
		"output_quantity": "12",
		"output_uom":      "kg",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["version"])
	assert.Equal(t, "draft", data["status"])
	assert.NotEmpty(t, data["id"])
}

func TestAuthorVersionEndpointMissingFields(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/products/PIZZA/versions", map[string]string{
		"output_uom": "kg",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeStatusEndpoint(t *testing.T) {
	router := testRouter(t)

	rec, body := doRequest(t, router, http.MethodPost, "/api/v1/boms/BOM-PIZZA-1/status", map[string]string{
		"status": "phased_out",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "phased_out", data["status"])
}

func TestChangeStatusEndpointBadStatus(t *testing.T) {
	router := testRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/boms/BOM-PIZZA-1/status", map[string]string{
		"status": "retired",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCachedProviderEvictsOnEvent(t *testing.T) {
	ds := memory.NewDataset(2, 2)
	store := events.NewInMemoryEventStore(nil)

	builds := 0
	provider := NewCachedProvider(
		func() (*memory.Dataset, error) { return ds, nil },
		func(source explosion.Source) *appservices.BOMService {
			builds++
			return appservices.NewBOMService(ds, ds, source, store, nil, 0)
		},
		zap.NewNop(),
	)
	require.NoError(t, provider.SubscribeTo(store))

	_, err := provider.Service()
	require.NoError(t, err)
	_, err = provider.Service()
	require.NoError(t, err)
	assert.Equal(t, 1, builds, "second call must hit the cache")

	require.NoError(t, store.AppendEvent("dataset", events.NewDatasetReloadedEvent(1, 1, 1)))

	// subscriber notification is asynchronous
	deadline := time.Now().Add(time.Second)
	for builds < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		_, err = provider.Service()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, builds, "mutation event must evict the cache")
}
