package handlers

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/stockcart/internal/modules/market"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() (*chi.Mux, *market.Simulator) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	sim := market.NewSimulatorWithRand(rand.New(rand.NewSource(1)), logger)
	handler := NewHandler(sim, logger)

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterRoutes)
	return router, sim
}

func TestHandleListStocks(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest("GET", "/api/stocks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var stocks []market.Stock
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stocks))
	assert.Len(t, stocks, 30)
}

func TestHandleGetStock(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest("GET", "/api/stocks/infy", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var stock market.Stock
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stock))
	assert.Equal(t, "INFY", stock.Symbol)

	req = httptest.NewRequest("GET", "/api/stocks/UNKNOWN", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetIndicators(t *testing.T) {
	router, sim := setupRouter()
	for i := 0; i < 20; i++ {
		sim.Refresh()
	}
	for i := 0; i < 20; i++ {
		sim.SetPrice("TCS", "", float64(3900+i))
	}

	req := httptest.NewRequest("GET", "/api/stocks/TCS/indicators?period=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var ind market.Indicators
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ind))
	assert.Equal(t, "TCS", ind.Symbol)
	assert.Equal(t, 5, ind.Period)
	assert.NotNil(t, ind.SMA)
	assert.NotNil(t, ind.RSI)
}

func TestHandleGetIndicators_BadPeriod(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest("GET", "/api/stocks/TCS/indicators?period=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(market.NewSimulator(logger), logger)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
