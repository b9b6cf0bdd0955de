package httpcache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvDefaultsOff(t *testing.T) {
	t.Setenv("ATLAS_MCP_HTTP_CACHE_ENABLED", "")
	t.Setenv("ATLAS_MCP_HTTP_CACHE_TTL_SECONDS", "")
	t.Setenv("ATLAS_MCP_HTTP_CACHE_MAX_ENTRIES", "")

	cfg := ConfigFromEnv()
	require.False(t, cfg.Enabled)
	require.Equal(t, 60*time.Second, cfg.TTL)
	require.Equal(t, 256, cfg.MaxEntries)
}

func TestConfigFromEnvParsesKnobs(t *testing.T) {
	t.Setenv("ATLAS_MCP_HTTP_CACHE_ENABLED", "true")
	t.Setenv("ATLAS_MCP_HTTP_CACHE_TTL_SECONDS", "5")
	t.Setenv("ATLAS_MCP_HTTP_CACHE_MAX_ENTRIES", "10")

	cfg := ConfigFromEnv()
	require.True(t, cfg.Enabled)
	require.Equal(t, 5*time.Second, cfg.TTL)
	require.Equal(t, 10, cfg.MaxEntries)
}

func TestDisabledConfigReturnsBase(t *testing.T) {
	base := http.DefaultTransport
	rt := NewTransport(base, Config{Enabled: false})
	require.Equal(t, base, rt)
}

func get(t *testing.T, rt http.RoundTripper, url, auth string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestFreshEntryServedFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	rt := NewTransport(nil, Config{Enabled: true, TTL: time.Minute, MaxEntries: 8})
	require.Equal(t, "payload", get(t, rt, srv.URL+"/x", ""))
	require.Equal(t, "payload", get(t, rt, srv.URL+"/x", ""))
	require.Equal(t, int32(1), hits.Load())
}

func TestDifferentAuthNeverShareEntries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	rt := NewTransport(nil, Config{Enabled: true, TTL: time.Minute, MaxEntries: 8})
	require.Equal(t, "Bearer alice", get(t, rt, srv.URL+"/x", "Bearer alice"))
	require.Equal(t, "Bearer bob", get(t, rt, srv.URL+"/x", "Bearer bob"))
	require.Equal(t, int32(2), hits.Load())
}

func TestPostBypassesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rt := NewTransport(nil, Config{Enabled: true, TTL: time.Minute, MaxEntries: 8})
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/x", nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	require.Equal(t, int32(2), hits.Load())
}

func TestStaleEntryRevalidatesWithETag(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	// Zero TTL makes every cached entry immediately stale.
	rt := NewTransport(nil, Config{Enabled: true, TTL: 0, MaxEntries: 8})
	require.Equal(t, "payload", get(t, rt, srv.URL+"/x", ""))

	// Second call revalidates and serves the cached body on 304.
	require.Equal(t, "payload", get(t, rt, srv.URL+"/x", ""))
	require.Equal(t, int32(2), hits.Load())
}

func TestLRUEvictsOldEntries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	rt := NewTransport(nil, Config{Enabled: true, TTL: time.Minute, MaxEntries: 2})
	get(t, rt, srv.URL+"/a", "")
	get(t, rt, srv.URL+"/b", "")
	get(t, rt, srv.URL+"/c", "") // evicts /a
	require.Equal(t, int32(3), hits.Load())

	get(t, rt, srv.URL+"/a", "")
	require.Equal(t, int32(4), hits.Load(), "/a should have been evicted")
}
