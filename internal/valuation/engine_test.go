package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/stockfolio/internal/domain"
)

func TestValueHolding(t *testing.T) {
	pos := domain.Position{Ticker: "AAPL", Shares: 10, TotalInvested: 1000, AverageCost: 100}
	quote := &domain.Quote{Ticker: "AAPL", CurrentPrice: 150, PriorClose: 140}

	m := ValueHolding(pos, quote)

	assert.InDelta(t, 1500, m.CurrentValue, 1e-9)
	assert.InDelta(t, 500, m.Profit, 1e-9)
	assert.InDelta(t, 50, m.ProfitPercent, 1e-9)
	assert.InDelta(t, 100, m.DayChange, 1e-9)
	assert.InDelta(t, 100.0/14.0, m.DayChangePercent, 1e-9)
	assert.InDelta(t, 150, m.CurrentPrice, 1e-9)
	assert.InDelta(t, 140, m.PriorClose, 1e-9)
}

func TestValueHolding_MissingQuote(t *testing.T) {
	pos := domain.Position{Ticker: "OBSC", Shares: 10, TotalInvested: 1000}

	m := ValueHolding(pos, nil)

	assert.Equal(t, 0.0, m.CurrentValue)
	assert.Equal(t, -1000.0, m.Profit, "with no quote, current value is zero and profit reflects the invested amount")
	assert.Equal(t, -100.0, m.ProfitPercent)
	assert.Equal(t, 0.0, m.DayChange)
	assert.Equal(t, 0.0, m.DayChangePercent)
	assert.Equal(t, 0.0, m.CurrentPrice)
}

func TestValueHolding_ZeroDivisorGuards(t *testing.T) {
	// Net-zero invested (e.g. free shares): percent must not divide by zero
	pos := domain.Position{Ticker: "FREE", Shares: 5, TotalInvested: 0}
	quote := &domain.Quote{CurrentPrice: 10, PriorClose: 0}

	m := ValueHolding(pos, quote)

	assert.Equal(t, 0.0, m.ProfitPercent)
	assert.Equal(t, 0.0, m.DayChangePercent, "zero prior close must not divide")
	assert.InDelta(t, 50, m.CurrentValue, 1e-9)
}

func TestValuePortfolio(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "AAPL", Shares: 10, TotalInvested: 1000},
		{Ticker: "MSFT", Shares: 5, TotalInvested: 500},
	}
	quotes := map[string]domain.Quote{
		"AAPL": {CurrentPrice: 150},
		"MSFT": {CurrentPrice: 200},
	}

	m := ValuePortfolio(positions, quotes)

	assert.InDelta(t, 2500, m.TotalValue, 1e-9)
	assert.InDelta(t, 1500, m.TotalInvested, 1e-9)
	assert.InDelta(t, 1000, m.Profit, 1e-9)
	assert.InDelta(t, 1000.0/15.0, m.ProfitPercent, 1e-9)
}

func TestValuePortfolio_MissingQuoteIsLowerBound(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "AAPL", Shares: 10, TotalInvested: 1000},
		{Ticker: "OBSC", Shares: 5, TotalInvested: 500},
	}
	quotes := map[string]domain.Quote{
		"AAPL": {CurrentPrice: 150},
	}

	m := ValuePortfolio(positions, quotes)

	assert.InDelta(t, 1500, m.TotalValue, 1e-9, "unquoted holdings contribute zero value")
	assert.InDelta(t, 1500, m.TotalInvested, 1e-9, "but still count toward invested")
}

func TestValuePortfolio_Empty(t *testing.T) {
	m := ValuePortfolio(nil, nil)

	assert.Equal(t, 0.0, m.TotalValue)
	assert.Equal(t, 0.0, m.ProfitPercent)
}
