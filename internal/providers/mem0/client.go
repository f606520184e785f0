// Package mem0 implements the soft-fact vector tier on top of the
// mem0 REST API. The service is external and occasionally flaky, so
// both calls run behind the shared retrier and the caller is expected
// to treat failures as a degraded read, never a turn abort.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/pkg/retry"
)

type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	retrier *retry.Retrier
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		retrier: retry.NewDefaultRetrier(),
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var data []byte
	err = c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Token "+c.apiKey)
		req.Header.Set("User-Agent", core.AppUserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("mem0 %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Store submits extracted facts for ingestion. mem0 runs its own
// dedup/update pass server side, so we just hand over the raw facts.
func (c *Client) Store(ctx context.Context, facts []string, userKey, sessionID string) error {
	if c.apiKey == "" {
		return core.ErrNotConfigured
	}
	if len(facts) == 0 {
		return nil
	}

	messages := make([]map[string]string, 0, len(facts))
	for _, f := range facts {
		messages = append(messages, map[string]string{"role": "user", "content": f})
	}

	payload := map[string]any{
		"messages": messages,
		"user_id":  userKey,
		"metadata": map[string]string{"session_id": sessionID},
	}

	_, err := c.post(ctx, "/v1/memories/", payload)
	return err
}

// Search runs a semantic query and returns the memory texts, best
// match first.
func (c *Client) Search(ctx context.Context, query, userKey string) ([]string, error) {
	if c.apiKey == "" {
		return nil, core.ErrNotConfigured
	}

	payload := map[string]any{
		"query":   query,
		"user_id": userKey,
	}

	data, err := c.post(ctx, "/v1/memories/search/", payload)
	if err != nil {
		return nil, err
	}
	return parseSearchResults(data)
}

type searchHit struct {
	Memory string `json:"memory"`
}

// parseSearchResults accepts both response shapes the API has used:
// a bare list of hits, or an object wrapping them under "results".
func parseSearchResults(data []byte) ([]string, error) {
	var hits []searchHit
	if err := json.Unmarshal(data, &hits); err != nil {
		var wrapped struct {
			Results []searchHit `json:"results"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode search results: %w", err)
		}
		hits = wrapped.Results
	}

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Memory != "" {
			out = append(out, h.Memory)
		}
	}
	return out, nil
}
