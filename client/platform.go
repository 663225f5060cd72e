// Package client wraps the outbound platform API: persisting finished
// games and releasing their keys. Thin I/O only; the core never retries
// these calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tero-session/contract"
	"tero-session/errors"
)

type PlatformClient struct {
	http    *http.Client
	log     *slog.Logger
	baseURL string
	tokens  contract.TokenSource
}

func NewPlatformClient(log *slog.Logger, baseURL string, tokens contract.TokenSource) *PlatformClient {
	return &PlatformClient{
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
		baseURL: baseURL,
		tokens:  tokens,
	}
}

// PersistGame hands a finalized game payload to the platform.
func (c *PlatformClient) PersistGame(ctx context.Context, game any) error {
	body, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.Json, err)
	}

	return c.post(ctx, "/games", bytes.NewReader(body))
}

// FreeGameKey tells the platform the key no longer backs a live session
// and can be reissued.
func (c *PlatformClient) FreeGameKey(ctx context.Context, gameKey string) error {
	path := "/game-keys/" + url.PathEscape(gameKey) + "/release"
	return c.post(ctx, path, nil)
}

func (c *PlatformClient) post(ctx context.Context, path string, body *bytes.Reader) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.Http, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Platform unreachable", "path", path, "error", err)
		return fmt.Errorf("%w: %v", errors.Http, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		c.log.Error("Platform rejected request", "path", path, "status", res.StatusCode)
		return errors.Upstream
	}
	return nil
}
