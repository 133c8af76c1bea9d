package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider verifies tokens by calling the identity provider's
// introspection endpoint with the service's API key.
type HTTPProvider struct {
	verifyURL  string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPProvider(verifyURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		verifyURL: verifyURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type verifyResponse struct {
	Active  bool   `json:"active"`
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

func (p *HTTPProvider) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, strings.NewReader(""))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Session-Token", rawToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var payload verifyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !payload.Active || strings.TrimSpace(payload.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		Subject: strings.TrimSpace(payload.Subject),
		Email:   strings.TrimSpace(payload.Email),
	}, nil
}
