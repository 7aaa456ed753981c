// Package importer runs the full import pipeline: decode, detect broker,
// normalize, merge into the ledger, and recompute holdings.
package importer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/brokers"
	"github.com/aristath/stockfolio/internal/holdings"
	"github.com/aristath/stockfolio/internal/ingest"
	"github.com/aristath/stockfolio/internal/ledger"
	"github.com/aristath/stockfolio/internal/storage"
)

// Summary reports the outcome of one import.
type Summary struct {
	BatchID            string    `json:"batchId"`
	Broker             string    `json:"broker"`
	RowsRead           int       `json:"rowsRead"`
	Imported           int       `json:"imported"`
	Duplicates         int       `json:"duplicates"`
	TimestampFallbacks int       `json:"timestampFallbacks"`
	Holdings           int       `json:"holdings"`
	ImportedAt         time.Time `json:"importedAt"`
}

// Service orchestrates imports. The mutex enforces the single-writer model:
// two imports never interleave their read-modify-write of the ledger.
type Service struct {
	registry   *brokers.Registry
	normalizer *brokers.Normalizer
	aggregator *holdings.Aggregator
	store      *storage.Store
	log        zerolog.Logger

	mu sync.Mutex
}

// NewService creates an import service.
func NewService(
	registry *brokers.Registry,
	normalizer *brokers.Normalizer,
	aggregator *holdings.Aggregator,
	store *storage.Store,
	log zerolog.Logger,
) *Service {
	return &Service{
		registry:   registry,
		normalizer: normalizer,
		aggregator: aggregator,
		store:      store,
		log:        log.With().Str("service", "importer").Logger(),
	}
}

// ImportFile ingests one broker export. Re-importing the same file is
// idempotent for every transaction that carries an order ID. Format and
// empty-file failures abort before stored data is touched.
func (s *Service) ImportFile(filename string, r io.Reader) (*Summary, error) {
	headers, rows, err := ingest.ForFilename(filename).Decode(r)
	if err != nil {
		return nil, err
	}

	spec, err := s.registry.Detect(headers)
	if err != nil {
		return nil, err
	}

	batch, stats, err := s.normalizer.Normalize(rows, spec.Key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.LoadLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	merged, added, duplicates := ledger.Merge(existing, batch)

	positions := s.aggregator.Aggregate(merged)

	if err := s.store.SaveLedger(merged); err != nil {
		return nil, fmt.Errorf("failed to save ledger: %w", err)
	}
	if err := s.store.SaveHoldings(positions); err != nil {
		return nil, fmt.Errorf("failed to save holdings: %w", err)
	}

	summary := &Summary{
		BatchID:            uuid.NewString(),
		Broker:             spec.Name,
		RowsRead:           stats.RowsRead,
		Imported:           added,
		Duplicates:         duplicates,
		TimestampFallbacks: stats.TimestampFallbacks,
		Holdings:           len(positions),
		ImportedAt:         time.Now().UTC(),
	}

	s.log.Info().
		Str("batch_id", summary.BatchID).
		Str("broker", summary.Broker).
		Int("rows", summary.RowsRead).
		Int("imported", summary.Imported).
		Int("duplicates", summary.Duplicates).
		Int("holdings", summary.Holdings).
		Msg("Import complete")

	return summary, nil
}

// Recalculate recomputes holdings from the stored ledger, without ingesting
// anything new. Used after bundle imports and by the refresh job.
func (s *Service) Recalculate() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.store.LoadLedger()
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger: %w", err)
	}

	positions := s.aggregator.Aggregate(txs)
	if err := s.store.SaveHoldings(positions); err != nil {
		return 0, fmt.Errorf("failed to save holdings: %w", err)
	}

	return len(positions), nil
}
