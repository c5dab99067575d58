package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dirhub/miniauth/initdata"
	"github.com/dirhub/miniauth/refresh"
)

// Client calls the session endpoints from the embedding application's side.
// It satisfies refresh.Exchanger.
type Client struct {
	// BaseURL is the issuing service root, without a trailing slash.
	BaseURL string
	// HTTP defaults to http.DefaultClient.
	HTTP *http.Client
}

// ProtocolError is a structured rejection from the issuing service.
type ProtocolError struct {
	Code   string
	Status int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("session endpoint rejected request: %s (http %d)", e.Code, e.Status)
}

var _ refresh.Exchanger = (*Client)(nil)

// Authenticate presents a raw credential payload to POST /auth/session.
func (c *Client) Authenticate(ctx context.Context, rawPayload string) (refresh.Session, error) {
	body, err := json.Marshal(sessionRequest{InitData: rawPayload})
	if err != nil {
		return refresh.Session{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/session", bytes.NewReader(body))
	if err != nil {
		return refresh.Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Refresh presents the current token to POST /auth/refresh.
func (c *Client) Refresh(ctx context.Context, token string) (refresh.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/refresh", nil)
	if err != nil {
		return refresh.Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (refresh.Session, error) {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return refresh.Session{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var rejection errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rejection); err != nil || rejection.Error == "" {
			rejection.Error = "internal"
		}
		return refresh.Session{}, &ProtocolError{Code: rejection.Error, Status: resp.StatusCode}
	}

	var session SessionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&session); err != nil {
		return refresh.Session{}, fmt.Errorf("decode session response: %w", err)
	}
	return refresh.Session{
		Token: session.Token,
		Identity: initdata.Identity{
			ExternalID: session.Identity.ExternalID,
			FirstName:  session.Identity.FirstName,
			LastName:   session.Identity.LastName,
			Handle:     session.Identity.Handle,
			AvatarURL:  session.Identity.AvatarURL,
			Privileged: session.Identity.Privileged,
			Locale:     session.Identity.Locale,
		},
		ExpiresAt: session.ExpiresAt,
	}, nil
}
