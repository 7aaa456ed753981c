package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/brokers"
	"github.com/aristath/stockfolio/internal/corporate"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/holdings"
	"github.com/aristath/stockfolio/internal/importer"
	"github.com/aristath/stockfolio/internal/prices"
	"github.com/aristath/stockfolio/internal/storage"
)

// fakeQuotes serves quotes and history from fixed maps.
type fakeQuotes struct {
	quotes map[string]domain.Quote
}

func (f *fakeQuotes) GetQuote(ctx context.Context, ticker, isin string) (*domain.Quote, error) {
	if quote, ok := f.quotes[ticker]; ok {
		return &quote, nil
	}
	return nil, nil
}

func (f *fakeQuotes) GetHistory(ctx context.Context, ticker, isin string, from, to time.Time) ([]domain.HistoryPoint, error) {
	return []domain.HistoryPoint{{Date: from, Close: 100}}, nil
}

func newTestHandler(t *testing.T, quotes map[string]domain.Quote) (*Handler, *storage.Store) {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := brokers.NewRegistry()
	normalizer := brokers.NewNormalizer(registry, zerolog.Nop())
	actions := corporate.NewEngine(corporate.Config{}, zerolog.Nop())
	aggregator := holdings.NewAggregator(actions, nil, zerolog.Nop())
	importSvc := importer.NewService(registry, normalizer, aggregator, store, zerolog.Nop())

	source := &fakeQuotes{quotes: quotes}
	priceSvc := prices.NewService(source, zerolog.Nop())

	return NewHandler(store, importSvc, priceSvc, source, zerolog.Nop()), store
}

func TestHandleGetHoldings(t *testing.T) {
	handler, store := newTestHandler(t, nil)
	require.NoError(t, store.SaveHoldings([]domain.Position{
		{Ticker: "AAPL", Title: "Apple", Shares: 10, TotalInvested: 1000},
	}))

	req := httptest.NewRequest("GET", "/api/holdings", nil)
	w := httptest.NewRecorder()
	handler.HandleGetHoldings(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var positions []domain.Position
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Ticker)
}

func TestHandleGetPortfolio(t *testing.T) {
	handler, store := newTestHandler(t, map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", CurrentPrice: 150, PriorClose: 140},
	})
	require.NoError(t, store.SaveHoldings([]domain.Position{
		{Ticker: "AAPL", Shares: 10, TotalInvested: 1000},
		{Ticker: "OBSC", Shares: 5, TotalInvested: 500},
	}))

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	handler.HandleGetPortfolio(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Portfolio struct {
			TotalValue    float64 `json:"totalValue"`
			TotalInvested float64 `json:"totalInvested"`
		} `json:"portfolio"`
		Holdings []struct {
			Ticker   string `json:"ticker"`
			HasQuote bool   `json:"hasQuote"`
			Metrics  struct {
				CurrentValue float64 `json:"currentValue"`
				Profit       float64 `json:"profit"`
			} `json:"metrics"`
		} `json:"holdings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.InDelta(t, 1500, resp.Portfolio.TotalValue, 1e-9)
	assert.InDelta(t, 1500, resp.Portfolio.TotalInvested, 1e-9)
	require.Len(t, resp.Holdings, 2)

	for _, h := range resp.Holdings {
		switch h.Ticker {
		case "AAPL":
			assert.True(t, h.HasQuote)
			assert.InDelta(t, 1500, h.Metrics.CurrentValue, 1e-9)
		case "OBSC":
			assert.False(t, h.HasQuote, "missing quote must degrade, not fail")
			assert.InDelta(t, -500, h.Metrics.Profit, 1e-9)
		}
	}
}

func TestHandleImport(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	csv := "Title,Ticker,ISIN,Type,Timestamp,Quantity,Buy / Sell,Price per Share in Account Currency,Total Amount,Account Currency,Venue,Order ID\n" +
		"Apple Inc,AAPL,US0378331005,ORDER,2024-01-15T10:30:00.000Z,10,BUY,150.5,1505,USD,XNYS,ord-1\n"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "freetrade.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler.HandleImport(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary importer.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "FreeTrade", summary.Broker)
	assert.Equal(t, 1, summary.Imported)
}

func TestHandleImport_UnrecognizedFormat(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Date,Amount\n2024-01-01,5\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler.HandleImport(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "FreeTrade", "error must name the supported brokers")
}

func TestHandleExportImportBundle_RoundTrip(t *testing.T) {
	handler, store := newTestHandler(t, nil)
	require.NoError(t, store.SaveLedger([]domain.Transaction{{
		Ticker:    "AAPL",
		Kind:      domain.KindTrade,
		Side:      domain.SideBuy,
		Quantity:  10,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		OrderID:   "ord-1",
	}}))
	require.NoError(t, store.SaveHoldings([]domain.Position{
		{Ticker: "AAPL", Shares: 10, TotalInvested: 1000},
	}))

	// Export
	w := httptest.NewRecorder()
	handler.HandleExport(w, httptest.NewRequest("GET", "/api/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.String()

	// Re-import into a fresh store
	fresh, freshStore := newTestHandler(t, nil)
	w = httptest.NewRecorder()
	fresh.HandleImportBundle(w, httptest.NewRequest("POST", "/api/import-bundle", strings.NewReader(exported)))
	require.Equal(t, http.StatusOK, w.Code)

	original, err := store.LoadLedger()
	require.NoError(t, err)
	restored, err := freshStore.LoadLedger()
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	originalHoldings, err := store.LoadHoldings()
	require.NoError(t, err)
	restoredHoldings, err := freshStore.LoadHoldings()
	require.NoError(t, err)
	assert.Equal(t, originalHoldings, restoredHoldings)
}

func TestHandleGetHoldingHistory(t *testing.T) {
	handler, store := newTestHandler(t, nil)
	require.NoError(t, store.SaveHoldings([]domain.Position{
		{Ticker: "AAPL", ISIN: "US0378331005", Shares: 10},
	}))

	router := chi.NewRouter()
	router.Get("/api/holdings/{ticker}/history", handler.HandleGetHoldingHistory)

	req := httptest.NewRequest("GET", "/api/holdings/AAPL/history?from=2024-01-01&to=2024-06-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var history []domain.HistoryPoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.NotEmpty(t, history)
}

func TestHandleGetHoldingHistory_UnknownTicker(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	router := chi.NewRouter()
	router.Get("/api/holdings/{ticker}/history", handler.HandleGetHoldingHistory)

	req := httptest.NewRequest("GET", "/api/holdings/NOPE/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
