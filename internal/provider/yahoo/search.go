package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// SearchQuote is one entry of the search endpoint's "quotes" list.
type SearchQuote struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	ExchDisp  string `json:"exchDisp"`
	QuoteType string `json:"quoteType"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
}

type searchEnvelope struct {
	Quotes []SearchQuote `json:"quotes"`
}

// Search looks query up on the v1 search endpoint and returns the matching
// quotes in the API's relevance order. News and lists are not requested.
func (c *ChartAPIClient) Search(ctx context.Context, query string) ([]SearchQuote, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")
	params.Set("listsCount", "0")

	u := fmt.Sprintf("%s/v1/finance/search?%s", c.baseURL, params.Encode())
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

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized: %w", decodeAPIError(res))

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var env searchEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return env.Quotes, nil
}
