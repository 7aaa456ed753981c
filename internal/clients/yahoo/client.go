package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a Yahoo Finance chart API client.
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultBaseURL,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// exchangeSuffixes maps an ISIN country code to the Yahoo listing suffix.
var exchangeSuffixes = map[string]string{
	"GB": ".L",
	"IE": ".L",
	"US": "",
	"CA": ".TO",
	"DE": ".DE",
	"FR": ".PA",
	"CH": ".SW",
	"AU": ".AX",
	"HK": ".HK",
	"JP": ".T",
	"IT": ".MI",
	"ES": ".MC",
	"NL": ".AS",
	"BE": ".BR",
	"SE": ".ST",
	"NO": ".OL",
	"DK": ".CO",
	"IN": ".NS",
	"BR": ".SA",
	"MX": ".MX",
	"ZA": ".JO",
}

// Symbol converts a broker ticker to a Yahoo Finance symbol using the ISIN
// country code to pick the exchange suffix.
//
// Examples:
//
//	AAPL + US00... -> AAPL
//	VOD  + GB00... -> VOD.L
//	TCS  + INE0... -> TCS.NS
func Symbol(ticker, isin string) string {
	if len(isin) < 2 {
		return ticker
	}
	return ticker + exchangeSuffixes[isin[:2]]
}

// GetQuote fetches the current and prior daily close for an instrument.
// Returns nil when Yahoo has no data for the symbol.
func (c *Client) GetQuote(ctx context.Context, ticker, isin string) (*domain.Quote, error) {
	symbol := Symbol(ticker, isin)

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", "5d")

	chart, err := c.getChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if chart == nil {
		c.log.Warn().Str("symbol", symbol).Msg("No chart data returned")
		return nil, nil
	}

	closes := make([]float64, 0, len(chart.closes))
	for _, v := range chart.closes {
		if v != nil {
			closes = append(closes, *v)
		}
	}
	if len(closes) == 0 {
		return nil, nil
	}

	current := closes[len(closes)-1]
	prior := current
	if len(closes) > 1 {
		prior = closes[len(closes)-2]
	}

	asOf := time.Now().UTC()
	if len(chart.timestamps) > 0 {
		asOf = time.Unix(chart.timestamps[len(chart.timestamps)-1], 0).UTC()
	}

	return &domain.Quote{
		Ticker:       ticker,
		CurrentPrice: current,
		PriorClose:   prior,
		Currency:     chart.currency,
		AsOf:         asOf,
	}, nil
}

// GetHistory fetches daily closes for an instrument between two instants.
func (c *Client) GetHistory(ctx context.Context, ticker, isin string, from, to time.Time) ([]domain.HistoryPoint, error) {
	symbol := Symbol(ticker, isin)

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", strconv.FormatInt(from.Unix(), 10))
	params.Add("period2", strconv.FormatInt(to.Unix(), 10))

	chart, err := c.getChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if chart == nil {
		return []domain.HistoryPoint{}, nil
	}

	history := make([]domain.HistoryPoint, 0, len(chart.timestamps))
	for i, ts := range chart.timestamps {
		if i >= len(chart.closes) || chart.closes[i] == nil {
			continue
		}
		history = append(history, domain.HistoryPoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *chart.closes[i],
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("count", len(history)).
		Msg("Fetched price history")

	return history, nil
}

// chartData is the subset of a chart API result the client consumes.
type chartData struct {
	timestamps []int64
	closes     []*float64
	currency   string
}

func (c *Client) getChart(ctx context.Context, symbol string, params url.Values) (*chartData, error) {
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Yahoo rejects requests without a browser-ish user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		return nil, nil
	}

	data := result.Chart.Result[0]
	if len(data.Indicators.Quote) == 0 {
		return nil, nil
	}

	return &chartData{
		timestamps: data.Timestamp,
		closes:     data.Indicators.Quote[0].Close,
		currency:   data.Meta.Currency,
	}, nil
}
