package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/stockcart/internal/auth"
	"github.com/aristath/stockcart/internal/database"
	"github.com/aristath/stockcart/internal/domain"
	"github.com/aristath/stockcart/internal/modules/cart"
	"github.com/aristath/stockcart/internal/modules/rules"
	"github.com/aristath/stockcart/internal/utils"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router *chi.Mux
	rules  *rules.Repository
	repo   *cart.Repository
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(db))

	repo := cart.NewRepository(db, logger)
	ruleRepo := rules.NewRepository(db, logger)
	service := cart.NewService(db, repo, ruleRepo, nil, utils.NewKeyedMutex(), logger)

	router := chi.NewRouter()
	router.Route("/api", NewHandler(service, logger).RegisterRoutes)

	return fixture{router: router, rules: ruleRepo, repo: repo}
}

func (f fixture) do(method, target, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		req.Header.Set(auth.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCartRoutes_RequireUser(t *testing.T) {
	f := setupFixture(t)

	w := f.do("GET", "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleAddAndGetCart(t *testing.T) {
	f := setupFixture(t)

	w := f.do("POST", "/api/cart/add", "u1", map[string]interface{}{
		"symbol": "tcs", "name": "TCS", "price": 3900.0, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do("GET", "/api/cart", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response struct {
		Items []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, "TCS", response.Items[0]["symbol"])
	assert.Equal(t, 2.0, response.Items[0]["quantity"])
	assert.Equal(t, false, response.Items[0]["auto_added"])
	assert.NotContains(t, response.Items[0], "user_id")

	// Other users see their own cart only
	w = f.do("GET", "/api/cart", "u2", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Empty(t, response.Items)
}

func TestHandleAdd_Invalid(t *testing.T) {
	f := setupFixture(t)

	req := httptest.NewRequest("POST", "/api/cart/add", bytes.NewBufferString("{not json"))
	req.Header.Set(auth.UserIDHeader, "u1")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", "/api/cart/add", "u1", map[string]interface{}{"symbol": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do("POST", "/api/cart/add", "u1", map[string]interface{}{"symbol": "TCS", "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRemove_DeactivatesRules(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.rules.Create(ctx, domain.Rule{
		ID: "r1", UserID: "u1", Symbol: "INFY", MinPrice: 1, MaxPrice: 2, Quantity: 1, Active: true,
	}))
	_, err := f.repo.InsertAutoIfAbsent(ctx, domain.CartEntry{UserID: "u1", Symbol: "INFY", Name: "Infosys", Price: 1.5, Quantity: 1})
	require.NoError(t, err)

	w := f.do("DELETE", "/api/cart/remove/INFY", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, true, response["removed"])
	assert.Equal(t, 1.0, response["rules_deactivated"])

	active, err := f.rules.IsActive(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHandleBuy(t *testing.T) {
	f := setupFixture(t)

	f.do("POST", "/api/cart/add", "u1", map[string]interface{}{"symbol": "ITC", "name": "ITC", "price": 420.0})
	w := f.do("POST", "/api/cart/buy", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "bought", response["status"])
	assert.Equal(t, 1.0, response["items"])
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, logger)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
