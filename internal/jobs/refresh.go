// Package jobs holds the background jobs run by the scheduler.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/importer"
	"github.com/aristath/stockfolio/internal/prices"
	"github.com/aristath/stockfolio/internal/storage"
)

// Refresh recomputes holdings from the stored ledger and warms the quote
// cache so portfolio requests stay fast between market polls.
type Refresh struct {
	importer *importer.Service
	prices   *prices.Service
	store    *storage.Store
	log      zerolog.Logger
}

// NewRefresh creates the refresh job.
func NewRefresh(imp *importer.Service, priceSvc *prices.Service, store *storage.Store, log zerolog.Logger) *Refresh {
	return &Refresh{
		importer: imp,
		prices:   priceSvc,
		store:    store,
		log:      log.With().Str("job", "refresh").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *Refresh) Name() string {
	return "refresh"
}

// Run implements scheduler.Job.
func (j *Refresh) Run() error {
	count, err := j.importer.Recalculate()
	if err != nil {
		return err
	}

	positions, err := j.store.LoadHoldings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	quotes := j.prices.GetQuotes(ctx, positions)

	j.log.Info().
		Int("holdings", count).
		Int("quotes", len(quotes)).
		Msg("Refreshed holdings and quote cache")

	return nil
}
