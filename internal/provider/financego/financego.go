// Package financego serves snapshots from the Yahoo quote API through
// piquette/finance-go.
package financego

import (
	"context"
	"fmt"
	"math"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"pricesnapshot/internal/provider"
)

// QuoteFunc fetches one quote. quote.Get satisfies it.
type QuoteFunc func(symbol string) (*finance.Quote, error)

// Snapshot implements provider.SnapshotSource on top of a QuoteFunc.
type Snapshot struct {
	get QuoteFunc
}

var _ provider.SnapshotSource = (*Snapshot)(nil)

// New returns a Snapshot backed by get, or by quote.Get when get is nil.
func New(get QuoteFunc) *Snapshot {
	if get == nil {
		get = quote.Get
	}
	return &Snapshot{get: get}
}

// LastPrice returns the regular market price. The library call takes no
// context, so cancellation is only checked before the request.
func (s *Snapshot) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, err := s.get(symbol)
	if err != nil {
		return 0, fmt.Errorf("finance-go quote %s: %w", symbol, err)
	}
	if q == nil {
		return 0, provider.ErrNoData
	}
	p := q.RegularMarketPrice
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, provider.ErrNoData
	}
	return p, nil
}
