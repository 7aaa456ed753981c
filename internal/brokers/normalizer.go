package brokers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

// Stats summarizes one normalization pass.
type Stats struct {
	RowsRead           int
	RowsDropped        int
	TimestampFallbacks int
}

// Normalizer maps raw broker rows into canonical transactions using the
// schema registry.
type Normalizer struct {
	registry *Registry
	log      zerolog.Logger
	now      func() time.Time
}

// NewNormalizer creates a new normalizer.
func NewNormalizer(registry *Registry, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		registry: registry,
		log:      log.With().Str("component", "normalizer").Logger(),
		now:      time.Now,
	}
}

// Normalize converts raw rows into canonical transactions for the given
// broker. Output order equals input order. A row is dropped only when it is
// a trade without an instrument identifier; non-trade rows are kept even
// without a ticker.
func (n *Normalizer) Normalize(rows []Row, brokerKey string) ([]domain.Transaction, Stats, error) {
	spec, ok := n.registry.Get(brokerKey)
	if !ok {
		return nil, Stats{}, fmt.Errorf("unknown broker %q", brokerKey)
	}

	stats := Stats{RowsRead: len(rows)}
	txs := make([]domain.Transaction, 0, len(rows))

	for i, raw := range rows {
		// Keep the untouched source row for audit before any derive step
		// adds working keys.
		origin := make(map[string]string, len(raw))
		for k, v := range raw {
			origin[k] = v
		}

		row := raw
		if spec.Derive != nil {
			row = spec.Derive(raw)
		}

		m := spec.Fields
		ts, parsed := n.parseTimestamp(row[m.Timestamp])
		if !parsed {
			stats.TimestampFallbacks++
			n.log.Warn().
				Str("broker", spec.Key).
				Int("row", i).
				Str("raw", row[m.Timestamp]).
				Msg("Unparseable timestamp, falling back to current time")
		}

		tx := domain.Transaction{
			Title:          row[m.Title],
			Ticker:         row[m.Ticker],
			ISIN:           row[m.ISIN],
			Kind:           mapKind(row[m.Kind], spec.Kinds),
			Timestamp:      ts,
			Quantity:       parseFloat(row[m.Quantity]),
			Side:           parseSide(firstNonEmpty(row[derivedSideKey], row[m.Side])),
			PricePerUnit:   parseFloat(firstNonEmpty(row[derivedPriceKey], row[m.PricePerUnit])),
			TotalAmount:    parseFloat(row[m.TotalAmount]),
			DividendAmount: parseFloat(row[m.DividendAmount]),
			Currency:       firstNonEmpty(row[m.Currency], spec.DefaultCurrency),
			Venue:          row[m.Venue],
			OrderID:        row[m.OrderID],
			Origin:         origin,
		}

		// Monthly statements and other ticker-less trade rows carry no
		// position information.
		if tx.Ticker == "" && tx.Kind == domain.KindTrade {
			stats.RowsDropped++
			continue
		}

		txs = append(txs, tx)
	}

	return txs, stats, nil
}

func mapKind(raw string, kinds map[string]domain.Kind) domain.Kind {
	if k, ok := kinds[raw]; ok {
		return k
	}
	return domain.OtherKind(raw)
}

// growwTimestampRe matches the locale format DD-MM-YYYY HH:MM AM/PM.
var growwTimestampRe = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})\s+(\d{1,2}):(\d{2})\s+(AM|PM)$`)

// bestEffortLayouts are tried for timestamps that are neither RFC 3339 nor
// the locale format above.
var bestEffortLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
}

// parseTimestamp normalizes a raw timestamp to UTC. It never fails: values
// it cannot interpret degrade to the current instant, with parsed=false so
// callers can count and surface the fallback.
func (n *Normalizer) parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return n.now().UTC(), false
	}

	if strings.Contains(raw, "T") {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC(), true
		}
	}

	if parts := growwTimestampRe.FindStringSubmatch(raw); parts != nil {
		day, _ := strconv.Atoi(parts[1])
		month, _ := strconv.Atoi(parts[2])
		year, _ := strconv.Atoi(parts[3])
		hour, _ := strconv.Atoi(parts[4])
		minute, _ := strconv.Atoi(parts[5])
		if parts[6] == "PM" && hour != 12 {
			hour += 12
		}
		if parts[6] == "AM" && hour == 12 {
			hour = 0
		}
		return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
	}

	for _, layout := range bestEffortLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}

	return n.now().UTC(), false
}

func parseFloat(raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseSide(raw string) domain.Side {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY":
		return domain.SideBuy
	case "SELL":
		return domain.SideSell
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
