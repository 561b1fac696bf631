package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// IdentityVerifier validates an external identity credential and returns the
// verified identity. The provider owns the protocol; we only consume it.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Identity is the verified identity-provider payload.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google Sign-In ID tokens against the tokeninfo
// endpoint.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
}

// NewGoogleVerifier creates a verifier. When clientID is non-empty the token
// audience must match it.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfo struct {
	Sub     string `json:"sub"`
	Aud     string `json:"aud"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	u := googleTokenInfoURL + "?id_token=" + url.QueryEscape(credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("invalid tokeninfo response: %w", err)
	}
	if v.clientID != "" && info.Aud != v.clientID {
		return nil, fmt.Errorf("token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("tokeninfo response missing subject or email")
	}

	return &Identity{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
