package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pricesnapshot/internal/provider"
)

// IntradayTier takes the last minute-bar close of the most recent session.
type IntradayTier struct {
	Source provider.HistorySource
}

func (IntradayTier) Name() string { return "intraday" }

func (t IntradayTier) Attempt(ctx context.Context, symbol string) Result {
	return lastClose(ctx, t.Source, symbol, provider.PeriodOneDay, provider.IntervalOneMinute)
}

// SnapshotTier pairs the latest quoted price with the local fetch time.
type SnapshotTier struct {
	Source provider.SnapshotSource
	// Now defaults to time.Now.
	Now func() time.Time
}

func (SnapshotTier) Name() string { return "snapshot" }

func (t SnapshotTier) Attempt(ctx context.Context, symbol string) Result {
	now := t.Now
	if now == nil {
		now = time.Now
	}
	fetchedAt := now()
	price, err := t.Source.LastPrice(ctx, symbol)
	if err != nil {
		return classify(err)
	}
	if !(price > 0) {
		return noValue(provider.ErrNoData)
	}
	return resolved(Observation{Price: price, TimestampMillis: provider.EpochMillis(fetchedAt)})
}

// DailyTier takes the last daily close of the past five sessions.
type DailyTier struct {
	Source provider.HistorySource
}

func (DailyTier) Name() string { return "daily" }

func (t DailyTier) Attempt(ctx context.Context, symbol string) Result {
	return lastClose(ctx, t.Source, symbol, provider.PeriodFiveDay, provider.IntervalOneDay)
}

// Default returns the standard chain: intraday, snapshot, daily.
func Default(history provider.HistorySource, snapshot provider.SnapshotSource) []Tier {
	return []Tier{
		IntradayTier{Source: history},
		SnapshotTier{Source: snapshot},
		DailyTier{Source: history},
	}
}

func lastClose(ctx context.Context, src provider.HistorySource, symbol string, period provider.Period, interval provider.Interval) Result {
	bars, err := src.History(ctx, symbol, period, interval)
	if err != nil {
		return classify(err)
	}
	for i := len(bars) - 1; i >= 0; i-- {
		b := bars[i]
		if !b.HasClose() || b.Time.Before(time.UnixMilli(0)) {
			continue
		}
		return resolved(Observation{Price: *b.Close, TimestampMillis: provider.EpochMillis(b.Time)})
	}
	return noValue(provider.ErrNoData)
}

func classify(err error) Result {
	if errors.Is(err, provider.ErrNoData) {
		return noValue(err)
	}
	return failed(err)
}

var preferredVenue = regexp.MustCompile(`(?i)(\.DE|XETRA|FRA)`)

// PreferredListing picks the symbol to retry with: the first German listing
// (.DE suffix, XETRA or Frankfurt), else the first hit. Empty when there are
// no hits.
func PreferredListing(listings []provider.Listing) string {
	for _, l := range listings {
		if preferredVenue.MatchString(l.Symbol + " " + l.Exchange + " " + l.ExchangeName) {
			return l.Symbol
		}
	}
	if len(listings) > 0 {
		return listings[0].Symbol
	}
	return ""
}

// SearchTier looks the symbol up and reruns Tiers on the preferred listing.
// The observation is still recorded under the requested symbol.
type SearchTier struct {
	Searcher provider.SymbolSearcher
	Tiers    []Tier
}

func (SearchTier) Name() string { return "search" }

func (t SearchTier) Attempt(ctx context.Context, symbol string) Result {
	listings, err := t.Searcher.Search(ctx, symbol)
	if err != nil {
		return classify(err)
	}
	mapped := PreferredListing(listings)
	if mapped == "" || strings.EqualFold(mapped, symbol) {
		return noValue(fmt.Errorf("no alternative listing: %w", provider.ErrNoData))
	}

	var firstErr error
	for _, inner := range t.Tiers {
		res := inner.Attempt(ctx, mapped)
		if res.Status == Resolved {
			res.Via = mapped
			return res
		}
		if res.Status == Failed && firstErr == nil {
			firstErr = fmt.Errorf("%s %s: %w", inner.Name(), mapped, res.Err)
		}
	}
	if firstErr != nil {
		return failed(firstErr)
	}
	return noValue(fmt.Errorf("%s: %w", mapped, provider.ErrNoData))
}

// WithSearch appends a SearchTier that retries tiers on a looked-up listing.
func WithSearch(tiers []Tier, searcher provider.SymbolSearcher) []Tier {
	inner := append([]Tier(nil), tiers...)
	return append(inner, SearchTier{Searcher: searcher, Tiers: append([]Tier(nil), tiers...)})
}
