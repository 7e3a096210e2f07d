// Package patreon is a minimal client for the Patreon OAuth2 and API v2
// endpoints the platform consumes: the campaign member listing that carries
// the currently entitled pledge amount, and the identity resource used at
// login time. All endpoint URLs are overridable for tests.
package patreon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gangway/pkg/clients"
	"gangway/pkg/logging"
)

const (
	defaultAPIBaseURL = "https://www.patreon.com/api/oauth2/v2"
	defaultAuthURL    = "https://www.patreon.com/oauth2/authorize"
	defaultTokenURL   = "https://www.patreon.com/api/oauth2/token"
)

// Config represents the configuration for the Patreon client
type Config struct {
	ClientID     string
	ClientSecret string
	CampaignID   string
	RedirectURL  string

	// Overridable endpoints, used by tests
	APIBaseURL string
	AuthURL    string
	TokenURL   string

	Timeout              time.Duration
	Logger               logging.Logger
	RetryConfig          *clients.RetryConfig
	CircuitBreakerConfig *clients.CircuitBreakerConfig
}

// Client represents a Patreon API client
type Client struct {
	cfg         Config
	httpClient  *http.Client
	logger      logging.Logger
	retryConfig clients.RetryConfig
}

// NewClient creates a new Patreon API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	retryConfig := clients.DefaultRetryConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}
	if cfg.CircuitBreakerConfig != nil {
		retryConfig.CircuitBreaker = clients.NewCircuitBreaker(*cfg.CircuitBreakerConfig)
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: clients.DefaultTransport(),
	}

	return &Client{
		cfg:         cfg,
		httpClient:  httpClient,
		logger:      cfg.Logger,
		retryConfig: retryConfig,
	}
}

// memberResource mirrors the JSON:API member document returned by the
// campaign members endpoint. Only the entitled amount is read.
type memberResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		CurrentlyEntitledAmountCents int `json:"currently_entitled_amount_cents"`
	} `json:"attributes"`
}

type membersResponse struct {
	Data []memberResource `json:"data"`
}

// EntitledCents returns the highest currently entitled pledge amount the
// given access token is granted within the configured campaign. A token with
// no membership yields zero, not an error.
func (c *Client) EntitledCents(ctx context.Context, accessToken string) (int, error) {
	endpoint := fmt.Sprintf("%s/campaigns/%s/members?%s",
		c.cfg.APIBaseURL,
		url.PathEscape(c.cfg.CampaignID),
		url.Values{"fields[member]": {"currently_entitled_amount_cents"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, c.retryConfig)
	if err != nil {
		return 0, fmt.Errorf("failed to call Patreon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return 0, fmt.Errorf("Patreon members error (%d): %s", resp.StatusCode, string(body))
	}

	var members membersResponse
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		return 0, fmt.Errorf("failed to decode members response: %w", err)
	}

	entitled := 0
	for _, m := range members.Data {
		if m.Attributes.CurrentlyEntitledAmountCents > entitled {
			entitled = m.Attributes.CurrentlyEntitledAmountCents
		}
	}
	return entitled, nil
}

// Identity is the provider-issued principal returned right after an
// authorization-code exchange.
type Identity struct {
	PatreonID   string
	FullName    string
	Email       string
	AccessToken string
}

type identityResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			FullName string `json:"full_name"`
			Email    string `json:"email"`
		} `json:"attributes"`
	} `json:"data"`
}

// FetchIdentity loads the identity resource for an access token.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	endpoint := fmt.Sprintf("%s/identity?%s", c.cfg.APIBaseURL,
		url.Values{"fields[user]": {"full_name,email"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, c.retryConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to call Patreon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("Patreon identity error (%d): %s", resp.StatusCode, string(body))
	}

	var ident identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	return &Identity{
		PatreonID:   ident.Data.ID,
		FullName:    ident.Data.Attributes.FullName,
		Email:       ident.Data.Attributes.Email,
		AccessToken: accessToken,
	}, nil
}
