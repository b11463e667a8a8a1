// Package fetch opens and reads Icecast/HTTP audio streams with the
// connection settings the whole daemon shares: HTTP/1.1 only (chunked
// streaming bodies don't benefit from HTTP/2 multiplexing here and some
// Icecast servers mishandle it), a modest keepalive, and bounded connect
// and stall timeouts so a dead stream doesn't hang a goroutine forever.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// NewHTTPClient builds the shared client every stream fetcher uses.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		IdleConnTimeout: 90 * time.Second,
		// An empty, non-nil TLSNextProto map disables net/http's automatic
		// HTTP/2 upgrade, keeping every connection on HTTP/1.1.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	return &http.Client{Transport: transport}
}

// Stream is an open, still-streaming HTTP response body paired with its
// advertised content type.
type Stream struct {
	Body        io.ReadCloser
	ContentType string
}

// Open issues a GET request for url with the headers an Icecast source
// expects (broad Accept, keep-alive) and returns the open body on a 2xx
// response. Non-2xx responses are closed and reported as an error.
func Open(ctx context.Context, client *http.Client, url string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "audio/*,application/ogg;q=0.9,*/*;q=0.1")
	req.Header.Set("Connection", "keep-alive")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s responded with %s", url, resp.Status)
	}

	return &Stream{Body: resp.Body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// StallTimeout is how long a single read may block before the stream is
// considered stalled and the caller should reconnect.
const StallTimeout = 120 * time.Second
