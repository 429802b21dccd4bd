// Package fetch retrieves audit targets over HTTP and reports the redirect
// chain each fetch followed.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
	"golang.org/x/net/html/charset"
)

// Identity is who the fetcher claims to be.
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

// Outcome is the result of one fetch. It belongs to the audit that requested it.
type Outcome struct {
	StatusCode int
	// Headers keeps response headers verbatim; lookups through Get are case-insensitive.
	Headers http.Header
	// Body is the response body decoded to UTF-8.
	Body []byte
	// Truncated is set when the body exceeded the size limit and was cut.
	Truncated bool
	// RedirectChain holds the URL of every response that redirected, in hop order.
	RedirectChain []string
	FinalURL      string
	Elapsed       time.Duration
}

// Fetcher retrieves a URL under an identity within a timeout.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, id Identity, timeout time.Duration) (*Outcome, error)
}

// HTTPFetcher is the net/http Fetcher. It is stateless between calls: every
// Fetch builds its own client so concurrent audits never share a cookie jar
// or redirect state.
type HTTPFetcher struct {
	// Transport overrides the round tripper (tests); nil uses a TLS 1.2+ transport.
	Transport    http.RoundTripper
	MaxBodyBytes int64
	MaxRedirects int
}

// NewHTTPFetcher returns a fetcher with the default limits.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
		MaxBodyBytes: consts.MaxBodyBytes,
		MaxRedirects: consts.MaxRedirects,
	}
}

// Fetch performs a GET and follows redirects, recording each hop.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, id Identity, timeout time.Duration) (*Outcome, error) {
	start := time.Now()
	maxRedirects := f.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = consts.MaxRedirects
	}

	var chain []string
	client := &http.Client{
		Timeout:   timeout,
		Transport: f.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			chain = append(chain, via[len(via)-1].URL.String())
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Op: "create request", Err: err}
	}
	if id.UserAgent != "" {
		req.Header.Set("User-Agent", id.UserAgent)
	}
	for k, v := range id.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Op: "get", Err: err}
	}
	defer resp.Body.Close()

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = consts.MaxBodyBytes
	}

	body, truncated, err := readDecoded(resp.Body, limit, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &Error{URL: rawURL, Op: "read body", Err: err}
	}

	headers := resp.Header.Clone()
	// The transport strips Content-Encoding when it gunzips on our behalf.
	if resp.Uncompressed && len(headers.Values("Content-Encoding")) == 0 {
		headers.Set("Content-Encoding", "gzip")
	}

	return &Outcome{
		StatusCode:    resp.StatusCode,
		Headers:       headers,
		Body:          body,
		Truncated:     truncated,
		RedirectChain: chain,
		FinalURL:      resp.Request.URL.String(),
		Elapsed:       time.Since(start),
	}, nil
}

// readDecoded reads at most limit bytes and converts them to UTF-8 using the
// Content-Type charset or the document's own meta declaration.
func readDecoded(r io.Reader, limit int64, contentType string) ([]byte, bool, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	truncated := int64(len(raw)) > limit
	if truncated {
		raw = raw[:limit]
	}
	decoded, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		// Unknown charset: keep the raw bytes.
		return raw, truncated, nil
	}
	out, err := io.ReadAll(decoded)
	if err != nil {
		return raw, truncated, nil
	}
	return out, truncated, nil
}

// Error is a FetchFailure: network, timeout, DNS or TLS trouble.
type Error struct {
	URL string
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}
