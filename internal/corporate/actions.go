// Package corporate applies configured, time-anchored adjustments to the
// ledger: ticker conversions, stock splits, and auto-exits.
package corporate

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

// Conversion exchanges a held position in one instrument for another at a
// fixed instant and share ratio (e.g. Credit Suisse into UBS).
type Conversion struct {
	FromTicker string
	ToTicker   string
	FromTitle  string
	ToTitle    string
	Ratio      float64
	Effective  time.Time
}

// AutoExit marks an instrument permanently excluded from holdings,
// modelling a delisting or acquisition whose final cash event is not in the
// ledger.
type AutoExit struct {
	Amount float64
	Reason string
}

// Config holds the corporate-action tables. It is injected into the engine
// and the aggregator rather than read from ambient state, so adjustment
// rules can be tested with synthetic tables.
type Config struct {
	Conversions []Conversion
	// Splits maps ticker to the multiplicative ratio new shares / old share.
	Splits map[string]float64
	// AutoExits maps ticker to its exit details.
	AutoExits map[string]AutoExit
}

// Engine applies corporate actions to canonical transactions.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates a corporate action engine.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "corporate").Logger(),
	}
}

// ApplyConversions appends synthetic transactions realising each configured
// conversion: a zero-value SELL of the full position held before the
// effective instant, and a BUY of ratio × held shares in the target
// instrument one second later so the sell orders first under a newest-first
// sort. The input is never modified; conversions with nothing held are
// no-ops. Synthetic order IDs are deterministic, so re-applying or merging
// them back into the ledger cannot duplicate them.
func (e *Engine) ApplyConversions(trades []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(trades))
	copy(out, trades)

	for _, conv := range e.cfg.Conversions {
		held := 0.0
		for _, tx := range trades {
			if tx.Ticker == conv.FromTicker && tx.IsTrade() && tx.Timestamp.Before(conv.Effective) {
				held += tx.SignedQuantity()
			}
		}
		if held <= 0 {
			continue
		}

		e.log.Debug().
			Str("from", conv.FromTicker).
			Str("to", conv.ToTicker).
			Float64("shares", held).
			Msg("Applying conversion")

		out = append(out, domain.Transaction{
			Ticker:    conv.FromTicker,
			Title:     fmt.Sprintf("%s (Conversion)", conv.FromTitle),
			Kind:      domain.KindTrade,
			Timestamp: conv.Effective,
			Quantity:  held,
			Side:      domain.SideSell,
			Currency:  "GBP",
			Venue:     "CONVERSION",
			OrderID:   fmt.Sprintf("CONV_%s_%s_SELL", conv.FromTicker, conv.ToTicker),
		})
		out = append(out, domain.Transaction{
			Ticker:    conv.ToTicker,
			Title:     fmt.Sprintf("%s (Conversion)", conv.ToTitle),
			Kind:      domain.KindTrade,
			Timestamp: conv.Effective.Add(time.Second),
			Quantity:  held * conv.Ratio,
			Side:      domain.SideBuy,
			Currency:  "GBP",
			Venue:     "CONVERSION",
			OrderID:   fmt.Sprintf("CONV_%s_%s_BUY", conv.FromTicker, conv.ToTicker),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	return out
}

// SplitRatio returns the configured split ratio for a ticker, defaulting
// to 1. Splits scale share counts at read time; the stored ledger stays
// historically faithful.
func (e *Engine) SplitRatio(ticker string) float64 {
	if ratio, ok := e.cfg.Splits[ticker]; ok {
		return ratio
	}
	return 1
}

// IsAutoExited reports whether the instrument is excluded from holdings
// regardless of its computed share balance.
func (e *Engine) IsAutoExited(ticker string) bool {
	_, ok := e.cfg.AutoExits[ticker]
	return ok
}

// AutoExitInfo returns the exit details for a ticker, if configured.
func (e *Engine) AutoExitInfo(ticker string) (AutoExit, bool) {
	exit, ok := e.cfg.AutoExits[ticker]
	return exit, ok
}
