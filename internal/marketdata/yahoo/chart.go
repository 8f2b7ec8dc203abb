package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"marketbrief/internal/marketdata"
)

// Chart is one decoded result of the chart endpoint.
type Chart struct {
	Symbol             string
	Currency           string
	RegularMarketPrice *float64
	PreviousClose      *float64
	ChartPreviousClose *float64
	// RegularMarketTime is the time of RegularMarketPrice. Zero when unknown.
	RegularMarketTime time.Time
	// Pre, Regular and Post are the sessions of the current trading day.
	// Zero when the response carries no trading periods.
	Pre, Regular, Post Period
	Timestamps         []time.Time
	Closes             []*float64
}

// Period is a half-open trading session [Start, End).
type Period struct {
	Start, End time.Time
}

// Contains reports whether t falls inside p. A zero period contains nothing.
func (p Period) Contains(t time.Time) bool {
	if p.Start.IsZero() || p.End.IsZero() {
		return false
	}
	return !t.Before(p.Start) && t.Before(p.End)
}

type period struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (p period) decode() Period {
	if p.Start == 0 || p.End == 0 {
		return Period{}
	}
	return Period{Start: time.Unix(p.Start, 0).UTC(), End: time.Unix(p.End, 0).UTC()}
}

// State names the session containing t, using the marketdata state names.
func (c *Chart) State(t time.Time) string {
	switch {
	case c.Regular.Contains(t):
		return marketdata.StateRegular
	case c.Pre.Contains(t):
		return marketdata.StatePre
	case c.Post.Contains(t):
		return marketdata.StatePost
	default:
		return marketdata.StateClosed
	}
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
				TradingPeriod      struct {
					Pre     period `json:"pre"`
					Regular period `json:"regular"`
					Post    period `json:"post"`
				} `json:"currentTradingPeriod"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetChart retrieves a price series for symbol, e.g. rng="2d", interval="5m".
func (c *ChartAPIClient) GetChart(ctx context.Context, symbol, rng, interval string, includePrePost bool, opts ...ChartAPIClientOption) (*Chart, error) {
	var override = &ChartAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      cloneValues(c.query),
	}
	for _, opt := range opts {
		opt(override)
	}

	query := cloneValues(override.query)
	query.Set("range", rng)
	query.Set("interval", interval)
	query.Set("includePrePost", strconv.FormatBool(includePrePost))

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", override.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return nil, fmt.Errorf("symbol %s not found", symbol)

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized")

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, string(b))
	}

	var body chartResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result for %s", symbol)
	}

	result := body.Chart.Result[0]
	chart := &Chart{
		Symbol:             result.Meta.Symbol,
		Currency:           result.Meta.Currency,
		RegularMarketPrice: result.Meta.RegularMarketPrice,
		PreviousClose:      result.Meta.PreviousClose,
		ChartPreviousClose: result.Meta.ChartPreviousClose,
		RegularMarketTime:  unixOrZero(result.Meta.RegularMarketTime),
		Pre:                result.Meta.TradingPeriod.Pre.decode(),
		Regular:            result.Meta.TradingPeriod.Regular.decode(),
		Post:               result.Meta.TradingPeriod.Post.decode(),
		Timestamps:         make([]time.Time, 0, len(result.Timestamp)),
	}
	for _, ts := range result.Timestamp {
		chart.Timestamps = append(chart.Timestamps, time.Unix(ts, 0).UTC())
	}
	if len(result.Indicators.Quote) > 0 {
		chart.Closes = result.Indicators.Quote[0].Close
	}
	return chart, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		out[key] = slices.Clone(values)
	}
	return out
}
