package provider

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNoData reports that a source was reachable but had nothing usable for
// the symbol: an empty series, an absent object or an absent price field.
var ErrNoData = errors.New("no data")

// Period is the look-back window of a history request, in the provider's
// range notation.
type Period string

// Interval is the bar resolution of a history request.
type Interval string

const (
	PeriodOneDay  Period = "1d"
	PeriodFiveDay Period = "5d"

	IntervalOneMinute Interval = "1m"
	IntervalOneDay    Interval = "1d"
)

// Bar is one close observation. Close is nil when the provider reported the
// bar without a price.
type Bar struct {
	Time  time.Time
	Close *float64
}

// HasClose reports whether the bar carries a finite, non-negative close.
func (b Bar) HasClose() bool {
	if b.Close == nil {
		return false
	}
	v := *b.Close
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// HistorySource returns a time-ordered price series for a symbol.
//
//go:generate mockgen -package=resolver_test -destination=../resolver/mock_provider_test.go -source=provider.go HistorySource,SnapshotSource,SymbolSearcher
type HistorySource interface {
	History(ctx context.Context, symbol string, period Period, interval Interval) ([]Bar, error)
}

// SnapshotSource returns the latest quoted price for a symbol.
type SnapshotSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// Listing is one search hit: a tradable symbol and the venue it trades on.
type Listing struct {
	Symbol       string
	Exchange     string
	ExchangeName string
}

// SymbolSearcher finds listings matching a free-form query, best match first.
type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]Listing, error)
}

// EpochMillis converts t to UTC epoch milliseconds. Instants before the epoch
// clamp to zero.
func EpochMillis(t time.Time) int64 {
	ms := t.UTC().UnixMilli()
	if ms < 0 {
		return 0
	}
	return ms
}
