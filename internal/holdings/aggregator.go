// Package holdings folds the corporate-action-adjusted ledger into
// per-instrument positions.
package holdings

import (
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/corporate"
	"github.com/aristath/stockfolio/internal/domain"
)

// closedPositionEpsilon is the share balance below which a position is
// considered closed.
const closedPositionEpsilon = 0.0001

// Aggregator computes positions from the canonical ledger.
type Aggregator struct {
	actions *corporate.Engine
	// ignoreTitles excludes instruments whose title contains any of these
	// substrings, e.g. short-term cash instruments.
	ignoreTitles []string
	log          zerolog.Logger
}

// NewAggregator creates a holdings aggregator.
func NewAggregator(actions *corporate.Engine, ignoreTitles []string, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		actions:      actions,
		ignoreTitles: ignoreTitles,
		log:          log.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate recomputes all positions from the full ledger. Only trades with
// an instrument identifier contribute; the fold is order-independent, so no
// chronology beyond what the conversion step already encoded is assumed.
// Split ratios scale shares and inversely scale average cost at read time,
// keeping post-split shares × average cost equal to total invested.
func (a *Aggregator) Aggregate(ledger []domain.Transaction) []domain.Position {
	trades := make([]domain.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if tx.IsTrade() && tx.Ticker != "" {
			trades = append(trades, tx)
		}
	}

	trades = a.actions.ApplyConversions(trades)

	type accum struct {
		position domain.Position
	}
	byTicker := make(map[string]*accum)
	order := make([]string, 0)

	for _, tx := range trades {
		acc, ok := byTicker[tx.Ticker]
		if !ok {
			acc = &accum{position: domain.Position{
				Ticker: tx.Ticker,
				Title:  tx.Title,
				ISIN:   tx.ISIN,
			}}
			byTicker[tx.Ticker] = acc
			order = append(order, tx.Ticker)
		}
		acc.position.Shares += tx.SignedQuantity()
		acc.position.TotalInvested += tx.SignedAmount()
	}

	positions := make([]domain.Position, 0, len(byTicker))
	for _, ticker := range order {
		pos := byTicker[ticker].position

		ratio := a.actions.SplitRatio(ticker)
		avg := 0.0
		if pos.Shares != 0 {
			avg = pos.TotalInvested / pos.Shares
		}
		pos.Shares *= ratio
		pos.AverageCost = avg / ratio

		if a.actions.IsAutoExited(ticker) {
			a.log.Debug().Str("ticker", ticker).Msg("Excluding auto-exited instrument")
			continue
		}
		if math.Abs(pos.Shares) < closedPositionEpsilon {
			continue
		}
		if a.titleIgnored(pos.Title) {
			continue
		}

		positions = append(positions, pos)
	}

	return positions
}

func (a *Aggregator) titleIgnored(title string) bool {
	for _, pattern := range a.ignoreTitles {
		if pattern != "" && strings.Contains(title, pattern) {
			return true
		}
	}
	return false
}
