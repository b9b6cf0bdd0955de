package atlassian

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/golovatskygroup/mcp-atlas/internal/httpcache"
)

// Client is the shared authenticated request layer under both vendor
// clients. Requests are paced by a client-side limiter so bulk operations
// don't hammer the vendor; 429 responses still surface as KindRateLimit
// without automatic retry.
type Client struct {
	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter
}

const defaultTimeout = 30 * time.Second

func limiterFromEnv() *rate.Limiter {
	// ATLAS_MCP_RPS caps requests per second per client; 0/unset disables.
	rps := 0.0
	if v := strings.TrimSpace(os.Getenv("ATLAS_MCP_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewClient builds a client for the resolved credentials. The transport
// refuses to follow redirects: Atlassian DC commonly redirects API paths to
// HTML login pages, which must surface as auth errors instead of garbage.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds: creds,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: httpcache.NewTransportFromEnv(nil),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: limiterFromEnv(),
	}
}

// BaseURL returns the instance base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.creds.BaseURL }

func looksLikeHTML(b []byte) bool {
	s := strings.TrimSpace(strings.ToLower(string(b)))
	if s == "" {
		return false
	}
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html") ||
		(strings.Contains(s, "<html") && strings.Contains(s, "<body"))
}

// Do performs one API request and returns the body of a 2xx response.
// Non-2xx responses, redirects and HTML bodies come back as *Error.
func (c *Client) Do(ctx context.Context, method, apiPath string, query url.Values, headers map[string]string, body []byte) ([]byte, http.Header, error) {
	u := c.creds.BaseURL + apiPath
	if len(query) > 0 {
		if strings.Contains(u, "?") {
			u += "&" + query.Encode()
		} else {
			u += "?" + query.Encode()
		}
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	return c.doURL(ctx, method, u, r, headers, body != nil)
}

// DoRaw performs a request against an absolute or instance-relative URL and
// streams the response body. Used for attachment downloads where the vendor
// hands out download URLs rather than API paths.
func (c *Client) DoRaw(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = c.creds.BaseURL + "/" + strings.TrimLeft(rawURL, "/")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransport(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewValidationError("bad download url %q: %v", rawURL, err)
	}
	if c.creds.AuthHeader != "" {
		req.Header.Set("Authorization", c.creds.AuthHeader)
	}

	// Attachment downloads legitimately redirect to media storage.
	dl := &http.Client{Timeout: 5 * time.Minute}
	resp, err := dl.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		apiErr := ClassifyStatus(resp.StatusCode, b)
		apiErr.RetryAfter = parseRetryAfter(resp.Header)
		return nil, apiErr
	}
	return resp.Body, nil
}

func (c *Client) doURL(ctx context.Context, method, u string, r io.Reader, headers map[string]string, jsonBody bool) ([]byte, http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, classifyTransport(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, nil, NewValidationError("bad request: %v", err)
	}
	req.Header.Set("User-Agent", "mcp-atlas")
	req.Header.Set("Accept", "application/json")
	if jsonBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.AuthHeader != "" {
		req.Header.Set("Authorization", c.creds.AuthHeader)
	}
	for k, v := range headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, classifyTransport(err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return nil, resp.Header, &Error{Kind: KindAuth, Status: resp.StatusCode,
			Message: "api returned a redirect (likely a login page); check credentials and base URL"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := ClassifyStatus(resp.StatusCode, b)
		apiErr.RetryAfter = parseRetryAfter(resp.Header)
		return nil, resp.Header, apiErr
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/html") || looksLikeHTML(b) {
		return nil, resp.Header, &Error{Kind: KindAuth, Status: resp.StatusCode,
			Message: "api returned html instead of json (likely a login page)"}
	}
	return b, resp.Header, nil
}

// DoMultipart posts a multipart/form-data body, used by attachment uploads.
// Atlassian requires the X-Atlassian-Token: no-check header on these.
func (c *Client) DoMultipart(ctx context.Context, apiPath, contentType string, body io.Reader) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransport(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.BaseURL+apiPath, body)
	if err != nil {
		return nil, NewValidationError("bad request: %v", err)
	}
	req.Header.Set("User-Agent", "mcp-atlas")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Atlassian-Token", "no-check")
	if c.creds.AuthHeader != "" {
		req.Header.Set("Authorization", c.creds.AuthHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := ClassifyStatus(resp.StatusCode, b)
		apiErr.RetryAfter = parseRetryAfter(resp.Header)
		return nil, apiErr
	}
	return b, nil
}
