package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tero-session/errors"
)

// tokenSkew renews the cached token slightly before it actually expires
// so an outbound call never races the upstream clock.
const tokenSkew = 30 * time.Second

type m2mTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
}

type m2mTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// M2MClient fetches machine-to-machine tokens from the upstream auth
// provider using the client-credentials grant and caches them until
// shortly before expiry.
type M2MClient struct {
	http         *http.Client
	log          *slog.Logger
	baseURL      string
	clientID     string
	clientSecret string
	audience     string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewM2MClient(log *slog.Logger, baseURL, clientID, clientSecret, audience string) *M2MClient {
	return &M2MClient{
		http:         &http.Client{Timeout: 10 * time.Second},
		log:          log,
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		audience:     audience,
	}
}

// Token returns the cached token, fetching a fresh one when stale.
func (c *M2MClient) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	body, err := json.Marshal(m2mTokenRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Audience:     c.audience,
		GrantType:    "client_credentials",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.Json, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.Http, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Auth provider unreachable", "error", err)
		return "", fmt.Errorf("%w: %v", errors.Http, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		c.log.Error("Auth provider rejected token request", "status", res.StatusCode)
		return "", errors.Upstream
	}

	var token m2mTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", errors.Json, err)
	}

	c.token = token.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenSkew)
	c.log.Debug("Fetched fresh M2M token", "expires_in", token.ExpiresIn)
	return c.token, nil
}
