package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVersionCacheLatest(t *testing.T) {
	var calls atomic.Int32
	var version atomic.Value
	version.Store("1.80.0")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"name":"n8n","version":"` + version.Load().(string) + `"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewVersionCache(srv.URL, srv.Client())
	cache.now = func() time.Time { return now }

	assert.Equal(t, "1.80.0", cache.Latest(context.Background()))
	version.Store("1.81.0")
	now = now.Add(30 * time.Minute)
	assert.Equal(t, "1.80.0", cache.Latest(context.Background()))
	assert.EqualValues(t, 1, calls.Load())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, "1.81.0", cache.Latest(context.Background()))
	assert.EqualValues(t, 2, calls.Load())
}

func TestVersionCacheFailureKeepsLastGood(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"version":"1.80.0"}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewVersionCache(srv.URL, srv.Client())
	cache.now = func() time.Time { return now }

	assert.Equal(t, "1.80.0", cache.Latest(context.Background()))
	fail.Store(true)
	now = now.Add(2 * time.Hour)
	assert.Equal(t, "1.80.0", cache.Latest(context.Background()))
}

func TestVersionCacheUnknownWithoutHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cache := NewVersionCache(srv.URL, srv.Client())
	assert.Equal(t, "unknown", cache.Latest(context.Background()))
}
