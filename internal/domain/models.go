package domain

import "time"

// Kind classifies a ledger transaction. Broker exports use their own type
// strings; the normalizer maps them onto this set. Unmapped raw strings are
// kept verbatim so a new broker category never drops data; consumers check
// Known before switching on the canonical values.
type Kind string

const (
	KindTrade      Kind = "TRADE"
	KindDividend   Kind = "DIVIDEND"
	KindInterest   Kind = "INTEREST"
	KindTopUp      Kind = "TOP_UP"
	KindWithdrawal Kind = "WITHDRAWAL"
	KindCapital    Kind = "CAPITAL"
	KindIncome     Kind = "INCOME"
)

// Known reports whether k is one of the canonical kinds.
func (k Kind) Known() bool {
	switch k {
	case KindTrade, KindDividend, KindInterest, KindTopUp, KindWithdrawal, KindCapital, KindIncome:
		return true
	}
	return false
}

// OtherKind wraps an unmapped broker type string as a pass-through kind.
func OtherKind(raw string) Kind {
	return Kind(raw)
}

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Transaction is one entry in the canonical ledger. Transactions are
// immutable once normalized; corporate-action processing appends synthetic
// entries instead of editing existing ones.
type Transaction struct {
	Ticker         string            `json:"ticker"`
	ISIN           string            `json:"isin,omitempty"`
	Title          string            `json:"title"`
	Kind           Kind              `json:"type"`
	Timestamp      time.Time         `json:"timestamp"`
	Quantity       float64           `json:"quantity"`
	Side           Side              `json:"buySell,omitempty"`
	PricePerUnit   float64           `json:"pricePerShare"`
	TotalAmount    float64           `json:"totalAmount"`
	DividendAmount float64           `json:"dividendAmount,omitempty"`
	Currency       string            `json:"currency"`
	Venue          string            `json:"venue,omitempty"`
	OrderID        string            `json:"orderId,omitempty"`
	Origin         map[string]string `json:"rawData,omitempty"`
}

// OrderKey returns the deduplication key for the transaction. Transactions
// without an external order ID have no identity and are never deduplicated.
func (t Transaction) OrderKey() (string, bool) {
	return t.OrderID, t.OrderID != ""
}

// IsTrade reports whether the transaction is a buy or sell of an instrument.
func (t Transaction) IsTrade() bool {
	return t.Kind == KindTrade
}

// SignedQuantity returns the quantity with BUY positive and SELL negative.
func (t Transaction) SignedQuantity() float64 {
	if t.Side == SideSell {
		return -t.Quantity
	}
	return t.Quantity
}

// SignedAmount returns the cash flow with BUY positive and SELL negative.
func (t Transaction) SignedAmount() float64 {
	if t.Side == SideSell {
		return -t.TotalAmount
	}
	return t.TotalAmount
}

// Position is the derived per-instrument holding state. It is recomputed in
// full from the adjusted ledger on every aggregation pass, never mutated
// incrementally.
type Position struct {
	Ticker        string  `json:"ticker"`
	Title         string  `json:"title"`
	ISIN          string  `json:"isin,omitempty"`
	Shares        float64 `json:"shares"`
	TotalInvested float64 `json:"totalInvested"`
	AverageCost   float64 `json:"avgPrice"`
}

// Quote is an externally supplied price snapshot for one instrument.
// Absence of a quote is a valid state, not an error.
type Quote struct {
	Ticker       string    `json:"ticker"`
	CurrentPrice float64   `json:"currentPrice"`
	PriorClose   float64   `json:"priorClose"`
	Currency     string    `json:"currency"`
	AsOf         time.Time `json:"asOf"`
}

// HistoryPoint is one daily close in an instrument's price history.
type HistoryPoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Bundle is the export/import shape for the two persisted documents.
type Bundle struct {
	LastUpdated time.Time     `json:"lastUpdated"`
	AllData     []Transaction `json:"allData"`
	Holdings    []Position    `json:"holdings"`
}
