package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("creates client with default config", func(t *testing.T) {
		client := NewClient(DefaultClientConfig())

		assert.NotNil(t, client)
		assert.Equal(t, 30*time.Second, client.GetTimeout())
		assert.Equal(t, 0, client.GetMaxRetries())
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		client := NewClient(ClientConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			UserAgent:  "test-agent/1.0",
		})

		assert.Equal(t, 10*time.Second, client.GetTimeout())
		assert.Equal(t, 2, client.GetMaxRetries())
	})

	t.Run("clamps negative retries", func(t *testing.T) {
		client := NewClient(ClientConfig{MaxRetries: -1})
		assert.Equal(t, 0, client.GetMaxRetries())
	})
}

func TestClient_Get(t *testing.T) {
	t.Run("successful GET request with query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/api/servers/one-piece-100", r.URL.Path)
			assert.Equal(t, "12", r.URL.Query().Get("ep"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"success": true}`))
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		resp, err := client.Get(context.Background(), server.URL+"/api/servers/one-piece-100", map[string]string{"ep": "12"})

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Contains(t, string(resp.Body()), "success")
	})

	t.Run("sends default headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "watchline/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "application/json, */*", r.Header.Get("Accept"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		_, err := client.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
	})

	t.Run("returns StatusError on 404", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		_, err := client.Get(context.Background(), server.URL, nil)

		require.Error(t, err)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
		assert.Equal(t, "not found", string(statusErr.Body))
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Get(ctx, server.URL, nil)
		require.Error(t, err)
	})

	t.Run("does not retry by default", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		_, err := client.Get(context.Background(), server.URL, nil)

		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("retries server errors when enabled", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{Timeout: 10 * time.Second, MaxRetries: 3})
		resp, err := client.Get(context.Background(), server.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, int32(3), attempts.Load())
	})
}

func TestTruncateBody(t *testing.T) {
	t.Run("short bodies are kept", func(t *testing.T) {
		assert.Equal(t, `{"success":true}`, truncateBody(`{"success":true}`))
	})

	t.Run("multi-byte bodies are cut on a rune boundary", func(t *testing.T) {
		body := strings.Repeat("é", 1500)
		out := truncateBody(body)

		assert.True(t, utf8.ValidString(out))
		assert.True(t, strings.HasSuffix(out, "... (truncated)"))
		assert.LessOrEqual(t, runewidth.StringWidth(out), maxLoggedBody)
	})
}

func TestClient_DebugLogsResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("フ", 800)))
	}))
	defer server.Close()

	var buf bytes.Buffer
	cfg := DefaultClientConfig()
	cfg.Debug = true
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := NewClient(cfg).Get(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "HTTP Request")
	assert.Contains(t, buf.String(), "HTTP Response")
	assert.Contains(t, buf.String(), "(truncated)")
}
