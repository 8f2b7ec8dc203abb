package httpx

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when a request has none. Quote endpoints reject
// the Go default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// Client is a small wrapper around http.Client with sane defaults.
// Its HTTP field applies the same defaults and can be handed to libraries
// that want a plain *http.Client.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	c := &Client{UserAgent: DefaultUserAgent, Headers: map[string]string{}}
	c.HTTP = &http.Client{Timeout: timeout, Transport: &defaults{next: transport, c: c}}
	return c
}

// Do sends req with the client defaults applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.HTTP.Do(req)
}

// defaults fills missing headers before handing the request on.
type defaults struct {
	next http.RoundTripper
	c    *Client
}

func (d *defaults) RoundTrip(req *http.Request) (*http.Response, error) {
	missingUA := d.c.UserAgent != "" && req.Header.Get("User-Agent") == ""
	var missing []string
	for k := range d.c.Headers {
		if req.Header.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	if !missingUA && len(missing) == 0 {
		return d.next.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	if missingUA {
		r.Header.Set("User-Agent", d.c.UserAgent)
	}
	for _, k := range missing {
		r.Header.Set(k, d.c.Headers[k])
	}
	return d.next.RoundTrip(r)
}
