// Package client talks to the report API over HTTP. BackendClient satisfies
// querysession.Backend so a terminal front end can drive a query session
// against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dota-report-be/internal/dto"
	"dota-report-be/internal/entity"
	"dota-report-be/internal/querysession"
)

const ClientIDHeader = dto.ClientIDHeader

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Message)
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type BackendClient struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewBackendClient builds a client for the server at baseURL. A zero timeout
// leaves request lifetimes to the caller's context.
func NewBackendClient(baseURL, clientID string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithTransport routes requests through rt, keeping the configured timeout.
func (c *BackendClient) WithTransport(rt http.RoundTripper) *BackendClient {
	c.httpClient.Transport = rt
	return c
}

func (c *BackendClient) Submit(ctx context.Context, params querysession.Parameters) (*entity.Report, error) {
	var out envelope[*entity.Report]
	if err := c.doJSON(ctx, http.MethodPost, "/api/report", params.Request(), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *BackendClient) Cancel(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/report/cancel", nil, nil)
}

func (c *BackendClient) ResetCancel(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/report/cancel/reset", nil, nil)
}

func (c *BackendClient) Progress(ctx context.Context) (entity.Progress, error) {
	var out envelope[dto.ProgressResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/report/progress", nil, &out); err != nil {
		return entity.Progress{}, err
	}
	return entity.Progress{Current: out.Data.Current, Total: out.Data.Total}, nil
}

func (c *BackendClient) Heroes(ctx context.Context) ([]string, error) {
	var out envelope[dto.HeroListResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/heroes", nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Heroes, nil
}

func (c *BackendClient) PlayerName(ctx context.Context, accountId string) (string, error) {
	var out envelope[dto.PlayerResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/players/"+accountId, nil, &out); err != nil {
		return "", err
	}
	return out.Data.PersonaName, nil
}

func (c *BackendClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(ClientIDHeader, c.clientID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		blob, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody envelope[json.RawMessage]
		if json.Unmarshal(blob, &errBody) == nil {
			apiErr.Message = strings.TrimSpace(errBody.Message)
		}
		if resp.StatusCode == http.StatusConflict {
			return fmt.Errorf("%w: %v", querysession.ErrRemoteCancelled, apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
