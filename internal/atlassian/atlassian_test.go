package atlassian

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusBadRequest, KindUnknown},
		{http.StatusConflict, KindUnknown},
	}
	for _, tc := range cases {
		err := ClassifyStatus(tc.status, []byte("body"))
		require.Equal(t, tc.want, err.Kind, "status %d", tc.status)
		require.Equal(t, tc.status, err.Status)
	}
}

func TestClassifyStatusTruncatesBody(t *testing.T) {
	body := make([]byte, 2000)
	for i := range body {
		body[i] = 'x'
	}
	err := ClassifyStatus(http.StatusBadRequest, body)
	require.Len(t, err.Message, 500)
}

func TestErrorStringIncludesRetryAfter(t *testing.T) {
	err := &Error{Kind: KindRateLimit, Status: 429, Message: "slow down", RetryAfter: 30 * time.Second}
	require.Contains(t, err.Error(), "rate_limit (429)")
	require.Contains(t, err.Error(), "retry after 30s")
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	require.Equal(t, time.Duration(0), parseRetryAfter(h))

	h.Set("Retry-After", "45")
	require.Equal(t, 45*time.Second, parseRetryAfter(h))

	// HTTP-date values are ignored.
	h.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	require.Equal(t, time.Duration(0), parseRetryAfter(h))
}

func TestIsKindMatchesWrappedErrors(t *testing.T) {
	inner := NewValidationError("bad date")
	require.True(t, IsKind(inner, KindValidation))
	require.False(t, IsKind(inner, KindAuth))
	require.False(t, IsKind(nil, KindValidation))
}

func clearVendorEnv(t *testing.T, prefix string) {
	t.Helper()
	for _, suffix := range []string{
		"_BASE_URL", "_PAT", "_BEARER_TOKEN", "_EMAIL", "_API_TOKEN",
		"_USERNAME", "_PASSWORD", "_CLIENTS_JSON", "_DEFAULT_CLIENT",
	} {
		t.Setenv(prefix+suffix, "")
	}
	ResetClientCacheForTest()
	t.Cleanup(ResetClientCacheForTest)
}

func TestResolveCredentialsPATWins(t *testing.T) {
	clearVendorEnv(t, "CONFLUENCE")
	t.Setenv("CONFLUENCE_BASE_URL", "https://wiki.example.com/")
	t.Setenv("CONFLUENCE_PAT", "pat-token")
	t.Setenv("CONFLUENCE_EMAIL", "a@example.com")
	t.Setenv("CONFLUENCE_API_TOKEN", "api-token")

	creds, err := ResolveCredentials("CONFLUENCE", "", "")
	require.NoError(t, err)
	require.Equal(t, "https://wiki.example.com", creds.BaseURL)
	require.Equal(t, "Bearer pat-token", creds.AuthHeader)
}

func TestResolveCredentialsEmailAPIToken(t *testing.T) {
	clearVendorEnv(t, "JIRA")
	t.Setenv("JIRA_BASE_URL", "jira.example.com")
	t.Setenv("JIRA_EMAIL", "a@example.com")
	t.Setenv("JIRA_API_TOKEN", "tok")

	creds, err := ResolveCredentials("JIRA", "", "")
	require.NoError(t, err)
	// Scheme-less base URLs get https.
	require.Equal(t, "https://jira.example.com", creds.BaseURL)

	enc := base64.StdEncoding.EncodeToString([]byte("a@example.com:tok"))
	require.Equal(t, "Basic "+enc, creds.AuthHeader)
}

func TestResolveCredentialsUsernamePasswordFallback(t *testing.T) {
	clearVendorEnv(t, "JIRA")
	t.Setenv("JIRA_BASE_URL", "https://jira.example.com")
	t.Setenv("JIRA_USERNAME", "admin")
	t.Setenv("JIRA_PASSWORD", "hunter2")

	creds, err := ResolveCredentials("JIRA", "", "")
	require.NoError(t, err)
	enc := base64.StdEncoding.EncodeToString([]byte("admin:hunter2"))
	require.Equal(t, "Basic "+enc, creds.AuthHeader)
}

func TestResolveCredentialsClientAlias(t *testing.T) {
	clearVendorEnv(t, "CONFLUENCE")
	t.Setenv("CONFLUENCE_CLIENTS_JSON", `{
		"acme": {"base_url": "https://acme.atlassian.net", "pat": "acme-pat"},
		"beta": {"base_url": "https://beta.example.com", "email": "b@example.com", "api_token": "beta-tok"}
	}`)

	creds, err := ResolveCredentials("CONFLUENCE", "acme", "")
	require.NoError(t, err)
	require.Equal(t, "https://acme.atlassian.net", creds.BaseURL)
	require.Equal(t, "Bearer acme-pat", creds.AuthHeader)

	creds, err = ResolveCredentials("CONFLUENCE", "beta", "")
	require.NoError(t, err)
	require.Equal(t, "https://beta.example.com", creds.BaseURL)
	enc := base64.StdEncoding.EncodeToString([]byte("b@example.com:beta-tok"))
	require.Equal(t, "Basic "+enc, creds.AuthHeader)
}

func TestResolveCredentialsDefaultClient(t *testing.T) {
	clearVendorEnv(t, "CONFLUENCE")
	t.Setenv("CONFLUENCE_CLIENTS_JSON", `{"acme": {"base_url": "https://acme.atlassian.net", "pat": "p"}}`)
	t.Setenv("CONFLUENCE_DEFAULT_CLIENT", "acme")

	creds, err := ResolveCredentials("CONFLUENCE", "", "")
	require.NoError(t, err)
	require.Equal(t, "https://acme.atlassian.net", creds.BaseURL)
}

func TestResolveCredentialsUnknownClient(t *testing.T) {
	clearVendorEnv(t, "CONFLUENCE")
	t.Setenv("CONFLUENCE_CLIENTS_JSON", `{"acme": {"base_url": "https://acme.atlassian.net", "pat": "p"}}`)

	_, err := ResolveCredentials("CONFLUENCE", "nope", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"nope"`)
}

func TestResolveCredentialsBaseOverrideWins(t *testing.T) {
	clearVendorEnv(t, "JIRA")
	t.Setenv("JIRA_BASE_URL", "https://jira.example.com")
	t.Setenv("JIRA_PAT", "p")

	creds, err := ResolveCredentials("JIRA", "", "https://other.example.com/")
	require.NoError(t, err)
	require.Equal(t, "https://other.example.com", creds.BaseURL)
}

func TestResolveCredentialsMissing(t *testing.T) {
	clearVendorEnv(t, "JIRA")

	_, err := ResolveCredentials("JIRA", "", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "JIRA_BASE_URL")

	t.Setenv("JIRA_BASE_URL", "https://jira.example.com")
	_, err = ResolveCredentials("JIRA", "", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "JIRA_PAT")
}

func newTestClient(baseURL string) *Client {
	return NewClient(Credentials{BaseURL: baseURL, AuthHeader: "Bearer test"})
}

func TestDoSendsAuthAndAccept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, _, err := newTestClient(srv.URL).Do(context.Background(), http.MethodGet, "/rest/api/thing", nil, nil, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestDoRedirectIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login.jsp", http.StatusFound)
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv.URL).Do(context.Background(), http.MethodGet, "/rest/api/thing", nil, nil, nil)
	require.True(t, IsKind(err, KindAuth), "redirects must classify as auth, got %v", err)
}

func TestDoHTMLBodyIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<!DOCTYPE html><html><body>Log in</body></html>"))
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv.URL).Do(context.Background(), http.MethodGet, "/rest/api/thing", nil, nil, nil)
	require.True(t, IsKind(err, KindAuth), "html bodies must classify as auth, got %v", err)
}

func TestDoRateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv.URL).Do(context.Background(), http.MethodGet, "/rest/api/thing", nil, nil, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindRateLimit, apiErr.Kind)
	require.Equal(t, 12*time.Second, apiErr.RetryAfter)
}

func TestDoMultipartSetsNoCheckToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "no-check", r.Header.Get("X-Atlassian-Token"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).DoMultipart(context.Background(), "/rest/api/upload",
		"multipart/form-data; boundary=x", nil)
	require.NoError(t, err)
}

func TestDoRawFollowsRedirects(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/media/file.pdf", http.StatusFound)
	})
	mux.HandleFunc("/media/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	})

	body, err := newTestClient(srv.URL).DoRaw(context.Background(), "/download")
	require.NoError(t, err)
	defer body.Close()

	b := make([]byte, 8)
	n, _ := body.Read(b)
	require.Equal(t, "%PDF-1.4", string(b[:n]))
}
