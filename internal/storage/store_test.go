package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleLedger() []domain.Transaction {
	return []domain.Transaction{
		{
			Ticker:       "AAPL",
			Title:        "Apple Inc",
			ISIN:         "US0378331005",
			Kind:         domain.KindTrade,
			Timestamp:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			Quantity:     10,
			Side:         domain.SideBuy,
			PricePerUnit: 150.5,
			TotalAmount:  1505,
			Currency:     "USD",
			OrderID:      "ord-1",
			Origin:       map[string]string{"Type": "ORDER"},
		},
		{
			Kind:        domain.KindInterest,
			Title:       "Interest",
			Timestamp:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			TotalAmount: 1.23,
			Currency:    "GBP",
		},
	}
}

func sampleHoldings() []domain.Position {
	return []domain.Position{
		{Ticker: "AAPL", Title: "Apple Inc", ISIN: "US0378331005", Shares: 10, TotalInvested: 1505, AverageCost: 150.5},
	}
}

func TestStore_LedgerRoundTrip(t *testing.T) {
	store := openTestStore(t)

	ledger := sampleLedger()
	require.NoError(t, store.SaveLedger(ledger))

	loaded, err := store.LoadLedger()
	require.NoError(t, err)
	assert.Equal(t, ledger, loaded)
}

func TestStore_HoldingsRoundTrip(t *testing.T) {
	store := openTestStore(t)

	holdings := sampleHoldings()
	require.NoError(t, store.SaveHoldings(holdings))

	loaded, err := store.LoadHoldings()
	require.NoError(t, err)
	assert.Equal(t, holdings, loaded)
}

func TestStore_LoadBeforeSave(t *testing.T) {
	store := openTestStore(t)

	ledger, err := store.LoadLedger()
	require.NoError(t, err)
	assert.Empty(t, ledger)

	holdings, err := store.LoadHoldings()
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestStore_SaveReplacesDocument(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveLedger(sampleLedger()))
	require.NoError(t, store.SaveLedger(sampleLedger()[:1]))

	loaded, err := store.LoadLedger()
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "save must replace, not append")
}

func TestStore_ExportImportRoundTrip(t *testing.T) {
	source := openTestStore(t)
	require.NoError(t, source.SaveLedger(sampleLedger()))
	require.NoError(t, source.SaveHoldings(sampleHoldings()))

	bundle, err := source.Export()
	require.NoError(t, err)
	assert.False(t, bundle.LastUpdated.IsZero())

	target := openTestStore(t)
	require.NoError(t, target.Import(bundle))

	ledger, err := target.LoadLedger()
	require.NoError(t, err)
	holdings, err := target.LoadHoldings()
	require.NoError(t, err)

	assert.Equal(t, sampleLedger(), ledger)
	assert.Equal(t, sampleHoldings(), holdings)
}

func TestStore_ImportReplacesWholesale(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveLedger(sampleLedger()))

	require.NoError(t, store.Import(domain.Bundle{
		AllData:  []domain.Transaction{},
		Holdings: []domain.Position{},
	}))

	ledger, err := store.LoadLedger()
	require.NoError(t, err)
	assert.Empty(t, ledger, "import must replace the previous ledger")
}
