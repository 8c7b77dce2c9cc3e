package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"time"

	"pricesnapshot/internal/provider"
)

// Meta is the subset of chart metadata the snapshot job reads.
type Meta struct {
	Currency             string   `json:"currency"`
	Symbol               string   `json:"symbol"`
	ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	RegularMarketTime    int64    `json:"regularMarketTime"`
	DataGranularity      string   `json:"dataGranularity"`
	Range                string   `json:"range"`
}

// Chart is one decoded chart response. Bars are in the order the API returned
// them, which is ascending time.
type Chart struct {
	Meta Meta
	Bars []provider.Bar
}

// APIError is the error object the chart API embeds in its envelope.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo chart %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

type chartEnvelope struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *APIError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       Meta    `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// GetChart retrieves the price series for symbol over period at interval.
// A 404 from the API, or an envelope without results, is reported as
// provider.ErrNoData.
func (c *ChartAPIClient) GetChart(ctx context.Context, symbol string, period provider.Period, interval provider.Interval) (*Chart, error) {
	query := maps.Clone(c.query)
	query.Set("range", string(period))
	query.Set("interval", string(interval))

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", provider.ErrNoData, decodeAPIError(res))

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized: %w", decodeAPIError(res))

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var env chartEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if env.Chart.Error != nil {
		env.Chart.Error.StatusCode = res.StatusCode
		return nil, env.Chart.Error
	}
	if len(env.Chart.Result) == 0 {
		return nil, provider.ErrNoData
	}

	result := env.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	n := min(len(result.Timestamp), len(closes))
	bars := make([]provider.Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, provider.Bar{
			Time:  time.Unix(result.Timestamp[i], 0).UTC(),
			Close: closes[i],
		})
	}
	return &Chart{Meta: result.Meta, Bars: bars}, nil
}

// decodeAPIError reads the envelope error from a failed response. It never
// returns nil.
func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode, Code: http.StatusText(res.StatusCode)}
	b, err := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	if err != nil {
		return apiErr
	}
	var env chartEnvelope
	if err := json.Unmarshal(b, &env); err == nil && env.Chart.Error != nil {
		env.Chart.Error.StatusCode = res.StatusCode
		return env.Chart.Error
	}
	return apiErr
}
