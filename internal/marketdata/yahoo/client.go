package yahoo

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public chart host. query2 serves the same API.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChartAPIClient talks to the v8 chart endpoint. Headers and query values are
// added to every request.
type ChartAPIClient struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
	query      url.Values
}

// ChartAPIClientOption configures a client, or a single GetChart call.
type ChartAPIClientOption func(*ChartAPIClient)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) ChartAPIClientOption {
	return func(c *ChartAPIClient) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

func WithHTTPClient(httpClient HTTPClient) ChartAPIClientOption {
	return func(c *ChartAPIClient) { c.httpClient = httpClient }
}

// WithHeader adds headers to every request.
func WithHeader(header http.Header) ChartAPIClientOption {
	return func(c *ChartAPIClient) {
		for k, vs := range header {
			for _, v := range vs {
				c.header.Add(k, v)
			}
		}
	}
}

// WithQuery adds query parameters to every request, e.g. a crumb.
func WithQuery(query url.Values) ChartAPIClientOption {
	return func(c *ChartAPIClient) {
		for k, vs := range query {
			c.query[k] = append(c.query[k], vs...)
		}
	}
}

// NewChartAPIClient returns a client for DefaultBaseURL unless overridden.
// The base URL must be absolute.
func NewChartAPIClient(options ...ChartAPIClientOption) (*ChartAPIClient, error) {
	c := &ChartAPIClient{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{"Accept": {"application/json, */*"}},
		query:      url.Values{},
	}
	for _, option := range options {
		option(c)
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("base url: must be absolute")
	}
	if c.httpClient == nil {
		return nil, errors.New("http client is nil")
	}
	return c, nil
}
