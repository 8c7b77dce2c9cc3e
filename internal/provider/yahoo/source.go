package yahoo

import (
	"context"
	"math"

	"pricesnapshot/internal/provider"
	"pricesnapshot/internal/provider/cache"
)

// Source adapts the chart API to the provider interfaces. Charts are cached
// per (symbol, period, interval), so the snapshot read after an intraday
// request with no usable bars is served from the same response.
type Source struct {
	client *ChartAPIClient
	charts *cache.Cache[*Chart]
}

var (
	_ provider.HistorySource  = (*Source)(nil)
	_ provider.SnapshotSource = (*Source)(nil)
	_ provider.SymbolSearcher = (*Source)(nil)
)

// NewSource wraps client. charts may be nil to disable caching.
func NewSource(client *ChartAPIClient, charts *cache.Cache[*Chart]) *Source {
	return &Source{client: client, charts: charts}
}

func (s *Source) History(ctx context.Context, symbol string, period provider.Period, interval provider.Interval) ([]provider.Bar, error) {
	chart, err := s.chart(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	if len(chart.Bars) == 0 {
		return nil, provider.ErrNoData
	}
	return chart.Bars, nil
}

// LastPrice reads meta.regularMarketPrice from the one-day minute chart.
func (s *Source) LastPrice(ctx context.Context, symbol string) (float64, error) {
	chart, err := s.chart(ctx, symbol, provider.PeriodOneDay, provider.IntervalOneMinute)
	if err != nil {
		return 0, err
	}
	p := chart.Meta.RegularMarketPrice
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) || *p <= 0 {
		return 0, provider.ErrNoData
	}
	return *p, nil
}

// Search returns listings with a symbol, in relevance order. No hits is
// provider.ErrNoData.
func (s *Source) Search(ctx context.Context, query string) ([]provider.Listing, error) {
	quotes, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	listings := make([]provider.Listing, 0, len(quotes))
	for _, q := range quotes {
		if q.Symbol == "" {
			continue
		}
		listings = append(listings, provider.Listing{Symbol: q.Symbol, Exchange: q.Exchange, ExchangeName: q.ExchDisp})
	}
	if len(listings) == 0 {
		return nil, provider.ErrNoData
	}
	return listings, nil
}

func (s *Source) chart(ctx context.Context, symbol string, period provider.Period, interval provider.Interval) (*Chart, error) {
	key := symbol + "|" + string(period) + "|" + string(interval)
	return s.charts.GetOrLoad(ctx, key, func(ctx context.Context) (*Chart, error) {
		return s.client.GetChart(ctx, symbol, period, interval)
	})
}
