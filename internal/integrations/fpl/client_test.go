package fpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

func testConfig(baseURL string) config.FPL {
	return config.FPL{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 5 * time.Millisecond,
		MinInterval:    0,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

func TestGetBootstrapDecodesNumericStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bootstrap-static/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"elements": []map[string]interface{}{
				{
					"id": 1, "web_name": "Salah", "team": 10, "element_type": 3,
					"now_cost": 130, "minutes": 900, "starts": 10,
					"form": "7.5", "expected_goals": "5.50",
					"expected_assists": "3.10", "expected_goal_involvements": "8.60",
					"expected_goals_conceded": "9.90", "status": "a",
				},
			},
			"teams":  []map[string]interface{}{{"id": 10, "name": "Liverpool", "short_name": "LIV"}},
			"events": []map[string]interface{}{{"id": 8, "is_next": true, "finished": false}},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testLogger())
	bs, err := c.GetBootstrap(context.Background())
	require.NoError(t, err)

	require.Len(t, bs.Players, 1)
	p := bs.Players[0]
	assert.Equal(t, "Salah", p.WebName)
	assert.InDelta(t, 7.5, p.Form.Float(), 1e-9)
	assert.InDelta(t, 8.6, p.XGI.Float(), 1e-9)
	assert.True(t, bs.Events[0].IsNext)
}

func TestGetRetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testLogger())
	_, err := c.GetFixtures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testLogger())
	_, err := c.GetFixtures(context.Background())
	require.Error(t, err)
	assert.Equal(t, fplerr.KindUpstreamUnavailable, fplerr.KindOf(err))
}

func TestGetEntryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testLogger())
	_, err := c.GetEntry(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, fplerr.KindNotFound, fplerr.KindOf(err))
}

func TestGetCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	c := NewClient(testConfig(srv.URL), testLogger())
	_, err := c.GetBootstrap(ctx)
	require.Error(t, err)
	assert.Equal(t, fplerr.KindCancelled, fplerr.KindOf(err))
}
