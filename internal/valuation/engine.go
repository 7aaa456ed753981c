// Package valuation combines positions with market quotes into holding- and
// portfolio-level metrics.
package valuation

import "github.com/aristath/stockfolio/internal/domain"

// HoldingMetrics are the price-dependent figures for one position.
type HoldingMetrics struct {
	CurrentValue     float64 `json:"currentValue"`
	Profit           float64 `json:"profit"`
	ProfitPercent    float64 `json:"profitPercent"`
	DayChange        float64 `json:"dayChange"`
	DayChangePercent float64 `json:"dayChangePercent"`
	CurrentPrice     float64 `json:"currentPrice"`
	PriorClose       float64 `json:"priorClose"`
}

// PortfolioMetrics are plain sums over holding-level value and invested
// amounts, not a weighted recomputation.
type PortfolioMetrics struct {
	TotalValue    float64 `json:"totalValue"`
	TotalInvested float64 `json:"totalInvested"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profitPercent"`
}

// ValueHolding computes metrics for one position. A nil quote means no
// price is available: price-dependent fields are zero, current value is
// treated as zero, and profit reflects the full invested amount.
func ValueHolding(pos domain.Position, quote *domain.Quote) HoldingMetrics {
	m := HoldingMetrics{}

	if quote != nil {
		m.CurrentPrice = quote.CurrentPrice
		m.PriorClose = quote.PriorClose
		m.CurrentValue = pos.Shares * quote.CurrentPrice
		m.DayChange = pos.Shares * (quote.CurrentPrice - quote.PriorClose)
		if quote.PriorClose > 0 {
			m.DayChangePercent = (quote.CurrentPrice - quote.PriorClose) / quote.PriorClose * 100
		}
	}

	m.Profit = m.CurrentValue - pos.TotalInvested
	if pos.TotalInvested > 0 {
		m.ProfitPercent = m.Profit / pos.TotalInvested * 100
	}

	return m
}

// ValuePortfolio computes portfolio totals. Positions without a quote
// contribute zero to current value but still count toward total invested,
// so total value is a lower bound when quotes are missing.
func ValuePortfolio(positions []domain.Position, quotes map[string]domain.Quote) PortfolioMetrics {
	m := PortfolioMetrics{}

	for _, pos := range positions {
		if quote, ok := quotes[pos.Ticker]; ok {
			m.TotalValue += pos.Shares * quote.CurrentPrice
		}
		m.TotalInvested += pos.TotalInvested
	}

	m.Profit = m.TotalValue - m.TotalInvested
	if m.TotalInvested > 0 {
		m.ProfitPercent = m.Profit / m.TotalInvested * 100
	}

	return m
}
