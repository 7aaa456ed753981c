// Package prices fans out quote requests for a set of holdings and caches
// the results.
package prices

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/stockfolio/internal/domain"
)

// maxConcurrentFetches bounds the quote fan-out.
const maxConcurrentFetches = 8

// defaultCacheTTL matches the refresh cadence of daily-close data.
const defaultCacheTTL = 5 * time.Minute

// QuoteSource supplies a current/prior price for one instrument. A nil
// quote with nil error means no data is available.
type QuoteSource interface {
	GetQuote(ctx context.Context, ticker, isin string) (*domain.Quote, error)
}

// HistorySource supplies daily closes for one instrument.
type HistorySource interface {
	GetHistory(ctx context.Context, ticker, isin string, from, to time.Time) ([]domain.HistoryPoint, error)
}

type cachedQuote struct {
	quote     domain.Quote
	fetchedAt time.Time
}

// Service fetches quotes for holdings concurrently. A failed or missing
// quote for one instrument never blocks or invalidates the others.
type Service struct {
	source   QuoteSource
	cacheTTL time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[string]cachedQuote
	now   func() time.Time
}

// NewService creates a price service over the given quote source.
func NewService(source QuoteSource, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		cacheTTL: defaultCacheTTL,
		log:      log.With().Str("service", "prices").Logger(),
		cache:    make(map[string]cachedQuote),
		now:      time.Now,
	}
}

// GetQuotes fetches one quote per distinct instrument, bounded-concurrently,
// and joins results by ticker. Instruments whose fetch fails or returns no
// data are simply absent from the result.
func (s *Service) GetQuotes(ctx context.Context, positions []domain.Position) map[string]domain.Quote {
	results := make(map[string]domain.Quote, len(positions))
	var resultsMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	seen := make(map[string]bool, len(positions))
	for _, pos := range positions {
		if pos.Ticker == "" || seen[pos.Ticker] {
			continue
		}
		seen[pos.Ticker] = true

		pos := pos
		g.Go(func() error {
			if quote, ok := s.cached(pos.Ticker); ok {
				resultsMu.Lock()
				results[pos.Ticker] = quote
				resultsMu.Unlock()
				return nil
			}

			quote, err := s.source.GetQuote(ctx, pos.Ticker, pos.ISIN)
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", pos.Ticker).Msg("Quote fetch failed")
				return nil
			}
			if quote == nil {
				s.log.Debug().Str("ticker", pos.Ticker).Msg("No quote available")
				return nil
			}

			s.store(pos.Ticker, *quote)
			resultsMu.Lock()
			results[pos.Ticker] = *quote
			resultsMu.Unlock()
			return nil
		})
	}

	// Workers swallow their errors, so Wait only observes context
	// cancellation.
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("Quote fan-out interrupted")
	}

	return results
}

func (s *Service) cached(ticker string) (domain.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[ticker]
	if !ok || s.now().Sub(entry.fetchedAt) > s.cacheTTL {
		delete(s.cache, ticker)
		return domain.Quote{}, false
	}
	return entry.quote, true
}

func (s *Service) store(ticker string, quote domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[ticker] = cachedQuote{quote: quote, fetchedAt: s.now()}
}
