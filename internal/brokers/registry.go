package brokers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/stockfolio/internal/domain"
)

// ErrUnrecognizedFormat is returned when no registered broker's detection
// predicate matches the file's column set.
var ErrUnrecognizedFormat = errors.New("unrecognized export format")

// Row is one decoded spreadsheet/CSV row, keyed by column name.
type Row map[string]string

// Reserved keys a broker's Derive step may set. They take precedence over the
// mapped source columns during normalization.
const (
	derivedPriceKey = "__derivedPrice"
	derivedSideKey  = "__derivedSide"
)

// FieldMapping maps canonical transaction fields to source column names.
// An empty name means the field is absent from the export or is produced by
// the broker's Derive step.
type FieldMapping struct {
	Title          string
	Ticker         string
	ISIN           string
	Kind           string
	Timestamp      string
	Quantity       string
	Side           string
	PricePerUnit   string
	TotalAmount    string
	Currency       string
	Venue          string
	OrderID        string
	DividendAmount string
}

// Spec describes one broker's export format.
type Spec struct {
	Key    string
	Name   string
	Detect func(headers []string) bool
	Fields FieldMapping
	// Kinds maps the broker's raw type strings onto canonical kinds.
	// Raw types missing from the table pass through unchanged.
	Kinds map[string]domain.Kind
	// Derive optionally pre-transforms a row before field mapping, e.g. to
	// compute a price from total value and quantity.
	Derive func(Row) Row
	// DefaultCurrency is used when the export carries no currency column.
	DefaultCurrency string
}

// Registry holds broker specs in registration order. Detection is
// first-match-wins, so more specific header sets must be registered first.
type Registry struct {
	specs []Spec
}

// NewRegistry creates a registry with the built-in brokers registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(freetradeSpec())
	r.Register(growwSpec())
	return r
}

// Register adds a broker spec to the registry.
func (r *Registry) Register(s Spec) {
	r.specs = append(r.specs, s)
}

// Detect returns the first broker whose predicate matches the header set.
func (r *Registry) Detect(headers []string) (Spec, error) {
	for _, s := range r.specs {
		if s.Detect(headers) {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: supported brokers are %s",
		ErrUnrecognizedFormat, strings.Join(r.Supported(), ", "))
}

// Get returns the broker spec registered under key.
func (r *Registry) Get(key string) (Spec, bool) {
	for _, s := range r.specs {
		if s.Key == key {
			return s, true
		}
	}
	return Spec{}, false
}

// Supported returns the display names of all registered brokers.
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		names = append(names, s.Name)
	}
	return names
}

func contains(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func freetradeSpec() Spec {
	return Spec{
		Key:  "FREETRADE",
		Name: "FreeTrade",
		Detect: func(headers []string) bool {
			return contains(headers, "Title") && contains(headers, "ISIN") && contains(headers, "Order ID")
		},
		Fields: FieldMapping{
			Title:          "Title",
			Ticker:         "Ticker",
			ISIN:           "ISIN",
			Kind:           "Type",
			Timestamp:      "Timestamp",
			Quantity:       "Quantity",
			Side:           "Buy / Sell",
			PricePerUnit:   "Price per Share in Account Currency",
			TotalAmount:    "Total Amount",
			Currency:       "Account Currency",
			Venue:          "Venue",
			OrderID:        "Order ID",
			DividendAmount: "Dividend Net Distribution Amount",
		},
		Kinds: map[string]domain.Kind{
			"ORDER":                domain.KindTrade,
			"DIVIDEND":             domain.KindDividend,
			"SPECIAL_DIVIDEND":     domain.KindDividend,
			"INTEREST_FROM_CASH":   domain.KindInterest,
			"INTEREST":             domain.KindInterest,
			"TOP_UP":               domain.KindTopUp,
			"WITHDRAWAL":           domain.KindWithdrawal,
			"CAPITAL":              domain.KindCapital,
			"SHARE_LENDING_INCOME": domain.KindIncome,
		},
		DefaultCurrency: "GBP",
	}
}

func growwSpec() Spec {
	return Spec{
		Key:  "GROWW",
		Name: "Groww",
		Detect: func(headers []string) bool {
			return contains(headers, "Stock name") && contains(headers, "Symbol") && contains(headers, "Exchange")
		},
		Fields: FieldMapping{
			Title:     "Stock name",
			Ticker:    "Symbol",
			ISIN:      "ISIN",
			Kind:      "Type",
			Timestamp: "Execution date and time",
			Quantity:  "Quantity",
			// Side and price are derived: the Type column doubles as the
			// trade direction and the export carries only the total value.
			TotalAmount: "Value",
			Venue:       "Exchange",
			OrderID:     "Exchange Order Id",
		},
		Kinds: map[string]domain.Kind{
			"BUY":  domain.KindTrade,
			"SELL": domain.KindTrade,
		},
		Derive: func(row Row) Row {
			qty, qerr := strconv.ParseFloat(strings.TrimSpace(row["Quantity"]), 64)
			val, verr := strconv.ParseFloat(strings.TrimSpace(row["Value"]), 64)
			if qerr == nil && verr == nil && qty != 0 {
				row[derivedPriceKey] = strconv.FormatFloat(val/qty, 'f', -1, 64)
			}
			row[derivedSideKey] = row["Type"]
			return row
		},
		DefaultCurrency: "INR",
	}
}
