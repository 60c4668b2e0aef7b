package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarsh/strider/pkg/logger"
)

func testClient() *Client {
	return New(5*time.Second, logger.Nop()).WithRetry(RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","count":3}`))
	}))
	defer srv.Close()

	var out struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	err := testClient().GetJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "OK", out.Status)
	assert.Equal(t, 3, out.Count)
}

func TestGetJSON_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRetry_RecoversFromServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := testClient().GetJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load(), "initial attempt plus two retries")
}

func TestRetry_ClientErrorsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRateLimit_Waits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	// 50 rps, burst 1: three sequential calls need at least ~40ms.
	client := testClient().WithRateLimit(50, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, client.GetJSON(context.Background(), srv.URL, &struct{}{}))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRateLimit_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := testClient().WithRateLimit(0.01, 1)
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, &struct{}{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := client.GetJSON(ctx, srv.URL, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
