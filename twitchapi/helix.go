// Package twitchapi contains a minimal Twitch Helix client used to check
// that a channel exists before the engine attempts to join it, using an app
// access (client credentials) token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrUserNotFound is returned when a login resolves to no Twitch account.
var ErrUserNotFound = fmt.Errorf("user not found")

// HelixClient resolves logins via the Helix users endpoint.
type HelixClient struct {
	ClientID    string
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	BaseURL     string // override for tests; defaults to the public API
}

// NewHelixClient builds a client backed by the client-credentials flow.
// The token is fetched lazily and cached/refreshed by the token source.
func NewHelixClient(ctx context.Context, clientID, clientSecret string) *HelixClient {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://id.twitch.tv/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &HelixClient{
		ClientID:    clientID,
		TokenSource: cc.TokenSource(ctx),
	}
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) baseURL() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return "https://api.twitch.tv"
}

// GetUserID resolves a login name to its user ID, or ErrUserNotFound.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	tok, err := hc.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("app token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.baseURL()+"/helix/users", nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("login", login)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp, err := hc.http().Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("helix users: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", ErrUserNotFound
	}
	return body.Data[0].ID, nil
}

// ChannelExists reports whether the login maps to an existing account.
func (hc *HelixClient) ChannelExists(ctx context.Context, login string) (bool, error) {
	_, err := hc.GetUserID(ctx, login)
	if err == ErrUserNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
