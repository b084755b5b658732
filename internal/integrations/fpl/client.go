package fpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/internal/models"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

const userAgent = "Mozilla/5.0 (compatible; FPLOptimizer/1.0)"

// API is the read-only upstream contract the planner consumes. The live
// implementation is Client; tests use MockClient.
type API interface {
	GetBootstrap(ctx context.Context) (*models.Bootstrap, error)
	GetFixtures(ctx context.Context) ([]models.Fixture, error)
	GetEntry(ctx context.Context, entryID int) (*models.Entry, error)
	GetEntryPicks(ctx context.Context, entryID, event int) (*models.EntryPicks, error)
	GetEntryTransfers(ctx context.Context, entryID int) ([]models.TransferRecord, error)
	GetEntryHistory(ctx context.Context, entryID int) (*models.EntryHistory, error)
}

// Client talks to the Fantasy Premier League API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	retryDelay  time.Duration
	rateLimiter *rateLimiter
	log         *logger.Logger
}

// rateLimiter enforces a minimum interval between requests
type rateLimiter struct {
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient creates a new FPL API client
func NewClient(cfg config.FPL, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryBaseDelay,
		rateLimiter: &rateLimiter{
			minInterval: cfg.MinInterval,
		},
		log: log.With("component", "fpl_client"),
	}
}

// GetBootstrap fetches bootstrap-static (all players, teams, gameweeks).
func (c *Client) GetBootstrap(ctx context.Context) (*models.Bootstrap, error) {
	var out models.Bootstrap
	if err := c.get(ctx, "/bootstrap-static/", &out); err != nil {
		return nil, fmt.Errorf("fetch bootstrap: %w", err)
	}
	return &out, nil
}

// GetFixtures fetches every fixture, past and future.
func (c *Client) GetFixtures(ctx context.Context) ([]models.Fixture, error) {
	var out []models.Fixture
	if err := c.get(ctx, "/fixtures/", &out); err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}
	return out, nil
}

// GetEntry fetches the manager's team record.
func (c *Client) GetEntry(ctx context.Context, entryID int) (*models.Entry, error) {
	var out models.Entry
	if err := c.get(ctx, fmt.Sprintf("/entry/%d/", entryID), &out); err != nil {
		return nil, fmt.Errorf("fetch entry %d: %w", entryID, err)
	}
	return &out, nil
}

// GetEntryPicks fetches the 15 picks for one entry and gameweek.
func (c *Client) GetEntryPicks(ctx context.Context, entryID, event int) (*models.EntryPicks, error) {
	var out models.EntryPicks
	if err := c.get(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", entryID, event), &out); err != nil {
		return nil, fmt.Errorf("fetch picks for entry %d event %d: %w", entryID, event, err)
	}
	return &out, nil
}

// GetEntryTransfers fetches the transfer feed, newest first.
func (c *Client) GetEntryTransfers(ctx context.Context, entryID int) ([]models.TransferRecord, error) {
	var out []models.TransferRecord
	if err := c.get(ctx, fmt.Sprintf("/entry/%d/transfers/", entryID), &out); err != nil {
		return nil, fmt.Errorf("fetch transfers for entry %d: %w", entryID, err)
	}
	return out, nil
}

// GetEntryHistory fetches the chronological gameweek history.
func (c *Client) GetEntryHistory(ctx context.Context, entryID int) (*models.EntryHistory, error) {
	var out models.EntryHistory
	if err := c.get(ctx, fmt.Sprintf("/entry/%d/history/", entryID), &out); err != nil {
		return nil, fmt.Errorf("fetch history for entry %d: %w", entryID, err)
	}
	return &out, nil
}

// get performs a GET with rate limiting and exponential-backoff retries.
// 404 is terminal; transport errors and other non-200 statuses are retried,
// with at most maxRetries attempts in all.
func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	url := c.baseURL + endpoint

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay << (attempt - 1)
			c.log.Warn("retrying request", "url", url, "attempt", attempt, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return fplerr.Cancelled(ctx.Err())
			case <-time.After(backoff):
			}
		}

		if err := c.rateLimiter.wait(ctx); err != nil {
			return fplerr.Cancelled(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fplerr.Cancelled(ctx.Err())
			}
			lastErr = err
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(result)
			resp.Body.Close()
			if err != nil {
				return fplerr.UpstreamUnavailable(err, "decode response from %s", url)
			}
			return nil
		case http.StatusNotFound:
			resp.Body.Close()
			return fplerr.NotFound("resource %s", endpoint)
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
			continue
		}
	}

	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return fplerr.Cancelled(lastErr)
	}
	return fplerr.UpstreamUnavailable(lastErr, "request %s failed after %d attempts", url, c.maxRetries)
}

// wait blocks until the minimum interval since the previous request has
// elapsed, or the context is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	sleep := r.minInterval - now.Sub(r.lastRequest)
	if sleep < 0 {
		sleep = 0
	}
	r.lastRequest = now.Add(sleep)
	r.mu.Unlock()

	if sleep == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sleep):
		return nil
	}
}
