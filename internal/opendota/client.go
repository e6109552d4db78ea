// Package opendota is a caching client for the public OpenDota API.
package opendota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

var ErrNotFound = errors.New("opendota: resource not found")

const (
	DefaultRetryWait = 10 * time.Second
	// MinRetryWait bounds how fast a busy upstream is retried.
	MinRetryWait = 5 * time.Millisecond
)

type Options struct {
	BaseURL    string
	RetryWait  time.Duration
	FlushEvery int
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	switch {
	case o.RetryWait <= 0:
		o.RetryWait = DefaultRetryWait
	case o.RetryWait < MinRetryWait:
		o.RetryWait = MinRetryWait
	}
	return o
}

// Client serves responses from an in-memory tier, then the durable tier, and
// only then from the network. Upstream rate limiting (429) and 500s are
// retried until ctx is done.
type Client struct {
	baseURL    string
	httpClient *http.Client
	memory     *cache.Cache
	durable    contract.ResponseCacheRepository
	retryWait  time.Duration
	flushEvery int
	logger     logger.ILogger

	mu     sync.Mutex
	misses int
}

func NewClient(opts Options, durable contract.ResponseCacheRepository, log logger.ILogger) *Client {
	opts = opts.withDefaults()
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		memory:     cache.New(cache.NoExpiration, 0),
		durable:    durable,
		retryWait:  opts.RetryWait,
		flushEvery: opts.FlushEvery,
		logger:     log,
	}
}

func (c *Client) HeroStats(ctx context.Context) ([]entity.HeroStat, error) {
	var heroes []entity.HeroStat
	if err := c.getJSON(ctx, "/heroStats", &heroes); err != nil {
		return nil, err
	}
	return heroes, nil
}

func (c *Client) PlayerMatches(ctx context.Context, accountId int64) ([]entity.PlayerMatch, error) {
	var matches []entity.PlayerMatch
	if err := c.getJSON(ctx, fmt.Sprintf("/players/%d/matches", accountId), &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (c *Client) Match(ctx context.Context, matchId int64) (*entity.MatchDetail, error) {
	var match entity.MatchDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/matches/%d", matchId), &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *Client) Player(ctx context.Context, accountId int64) (*entity.PlayerProfile, error) {
	var profile entity.PlayerProfile
	if err := c.getJSON(ctx, fmt.Sprintf("/players/%d", accountId), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Flush persists pending writes of the durable tier.
func (c *Client) Flush(ctx context.Context) error {
	if c.durable == nil {
		return nil
	}
	if err := c.durable.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush response cache: %w", err)
	}
	c.logger.Info("OpenDota", "Response cache saved", nil)
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("opendota: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	if x, found := c.memory.Get(path); found {
		return x.([]byte), nil
	}

	if c.durable != nil {
		body, found, err := c.durable.Get(ctx, path)
		if err != nil {
			c.logger.Warn("OpenDota", "Durable cache lookup failed", map[string]interface{}{"path": path, "error": err.Error()})
		} else if found {
			c.memory.Set(path, body, cache.NoExpiration)
			return body, nil
		}
	}

	body, err := c.download(ctx, path)
	if err != nil {
		return nil, err
	}
	c.memory.Set(path, body, cache.NoExpiration)
	c.store(ctx, path, body)
	return body, nil
}

func (c *Client) store(ctx context.Context, path string, body []byte) {
	if c.durable == nil {
		return
	}
	if err := c.durable.Put(ctx, path, body); err != nil {
		c.logger.Warn("OpenDota", "Failed to cache response", map[string]interface{}{"path": path, "error": err.Error()})
		return
	}

	c.mu.Lock()
	c.misses++
	flush := c.flushEvery > 0 && c.misses%c.flushEvery == 0
	c.mu.Unlock()

	if flush {
		if err := c.Flush(ctx); err != nil {
			c.logger.Error("OpenDota", "Error saving cache", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("opendota: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("OpenDota", "fetch", map[string]interface{}{"path": path})
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("opendota: GET %s: %w", path, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusInternalServerError:
			c.logger.Warn("OpenDota", "Upstream busy, retrying", map[string]interface{}{
				"path":   path,
				"status": resp.StatusCode,
				"wait":   c.retryWait.String(),
			})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryWait):
			}
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("opendota: GET %s returned status %d", path, resp.StatusCode)
		}

		if readErr != nil {
			return nil, fmt.Errorf("opendota: read %s: %w", path, readErr)
		}
		return body, nil
	}
}
