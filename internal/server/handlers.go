package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/brokers"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/importer"
	"github.com/aristath/stockfolio/internal/ingest"
	"github.com/aristath/stockfolio/internal/prices"
	"github.com/aristath/stockfolio/internal/storage"
	"github.com/aristath/stockfolio/internal/valuation"
)

// maxUploadBytes caps broker export uploads.
const maxUploadBytes = 20 << 20

// Handler handles all API requests.
type Handler struct {
	store    *storage.Store
	importer *importer.Service
	prices   *prices.Service
	history  prices.HistorySource
	log      zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	store *storage.Store,
	imp *importer.Service,
	priceSvc *prices.Service,
	history prices.HistorySource,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		store:    store,
		importer: imp,
		prices:   priceSvc,
		history:  history,
		log:      log.With().Str("handler", "api").Logger(),
	}
}

// HandleHealth reports service liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleImport ingests an uploaded broker export file.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	summary, err := h.importer.ImportFile(header.Filename, file)
	if err != nil {
		// Format and empty-file problems are the user's to fix; surface
		// the precise reason.
		if errors.Is(err, brokers.ErrUnrecognizedFormat) || errors.Is(err, ingest.ErrEmptyInput) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Str("file", header.Filename).Msg("Import failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetTransactions returns the canonical ledger, newest first.
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.store.LoadLedger()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, ledger)
}

// HandleGetHoldings returns the current positions.
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.store.LoadHoldings()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// holdingResponse pairs a position with its valuation metrics.
type holdingResponse struct {
	domain.Position
	Metrics  valuation.HoldingMetrics `json:"metrics"`
	HasQuote bool                     `json:"hasQuote"`
}

// HandleGetPortfolio returns holdings valued against fresh quotes plus
// portfolio totals. Instruments without a quote degrade to zero-valued
// price fields instead of failing the request.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.LoadHoldings()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	quotes := h.prices.GetQuotes(r.Context(), positions)

	result := make([]holdingResponse, 0, len(positions))
	for _, pos := range positions {
		var quote *domain.Quote
		if q, ok := quotes[pos.Ticker]; ok {
			quote = &q
		}
		result = append(result, holdingResponse{
			Position: pos,
			Metrics:  valuation.ValueHolding(pos, quote),
			HasQuote: quote != nil,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": valuation.ValuePortfolio(positions, quotes),
		"holdings":  result,
	})
}

// HandleGetHoldingHistory returns daily closes for one held instrument.
// Query params from/to are RFC 3339 dates; the default window is one year.
func (h *Handler) HandleGetHoldingHistory(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	positions, err := h.store.LoadHoldings()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	isin := ""
	found := false
	for _, pos := range positions {
		if pos.Ticker == ticker {
			isin = pos.ISIN
			found = true
			break
		}
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "unknown holding "+ticker)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			from = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			to = parsed
		}
	}

	history, err := h.history.GetHistory(r.Context(), ticker, isin, from, to)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, history)
}

// HandleExport returns the full ledger + holdings bundle.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.store.Export()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, bundle)
}

// HandleImportBundle replaces both stored documents from an exported bundle.
func (h *Handler) HandleImportBundle(w http.ResponseWriter, r *http.Request) {
	var bundle domain.Bundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid bundle: "+err.Error())
		return
	}

	if err := h.store.Import(bundle); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": len(bundle.AllData),
		"holdings":     len(bundle.Holdings),
	})
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
