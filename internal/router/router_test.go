package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sarisssa/dappify-contracts/internal/asset"
	"github.com/sarisssa/dappify-contracts/internal/database"
	"github.com/sarisssa/dappify-contracts/internal/escrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db := openDB(t, filepath.Join(dir, "engine.db"))
	ledgerDB := openDB(t, filepath.Join(dir, "assets.db"))

	ledger := asset.NewLedger(ledgerDB, "custody")
	notifier, err := escrow.NewNotifier(2)
	require.NoError(t, err)
	t.Cleanup(notifier.Close)

	engine := escrow.NewEngine(db, ledger, ledger, notifier, escrow.Options{
		CustodyAddress: "custody",
	})

	return Setup(engine, ledger)
}

func openDB(t *testing.T, path string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAndFetchProject(t *testing.T) {
	r := newTestRouter(t)

	start := time.Now().Add(time.Hour).UTC()
	w := doJSON(t, r, http.MethodPost, "/api/v1/projects", gin.H{
		"name":            "Genesis Sale",
		"symbol":          "GEN",
		"description":     "fixed supply sale",
		"creator_address": "creator",
		"total_supply":    1000,
		"unit_price":      10,
		"start_time":      start.Format(time.RFC3339),
		"end_time":        start.Add(31 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 列表包含新项目
	w = doJSON(t, r, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.Equal(t, int64(1), listResp.Data.Total)

	// 详情合并账户视图，未认购账户字段为零
	w = doJSON(t, r, http.MethodGet, "/api/v1/projects/1?account=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detailResp struct {
		Data struct {
			Status         string `json:"status"`
			AvailableUnits int64  `json:"available_units"`
			UnitsReserved  int64  `json:"units_reserved"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detailResp))
	assert.Equal(t, string(escrow.StatusPending), detailResp.Data.Status)
	assert.Equal(t, int64(1000), detailResp.Data.AvailableUnits)
	assert.Equal(t, int64(0), detailResp.Data.UnitsReserved)
}

func TestCreateProjectValidationMapsTo400(t *testing.T) {
	r := newTestRouter(t)

	start := time.Now().Add(time.Hour).UTC()
	w := doJSON(t, r, http.MethodPost, "/api/v1/projects", gin.H{
		"name":            "Genesis Sale",
		"symbol":          "GEN",
		"description":     "fixed supply sale",
		"creator_address": "creator",
		"total_supply":    1000,
		"unit_price":      10,
		"start_time":      start.Format(time.RFC3339),
		// 销售时长不足30天
		"end_time": start.Add(24 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAllocateBeforeStartMapsTo409(t *testing.T) {
	r := newTestRouter(t)

	start := time.Now().Add(time.Hour).UTC()
	w := doJSON(t, r, http.MethodPost, "/api/v1/projects", gin.H{
		"name":            "Genesis Sale",
		"symbol":          "GEN",
		"description":     "fixed supply sale",
		"creator_address": "creator",
		"total_supply":    1000,
		"unit_price":      10,
		"start_time":      start.Format(time.RFC3339),
		"end_time":        start.Add(31 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/accounts/alice/deposits", gin.H{"amount": 1000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/projects/1/allocations", gin.H{
		"address": "alice",
		"units":   10,
		"payment": 100,
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestUnknownProjectMapsTo404(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/claim", 99), gin.H{
		"address": "alice",
	})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}
