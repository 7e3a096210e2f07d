package patreon

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
)

// Scopes requested during login. Membership scopes are required so the
// members endpoint can report the entitled pledge for this user.
const oauthScopes = "identity identity[email] campaigns campaigns.members"

// Token is the provider token pair from the OAuth token endpoint.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// AuthCodeURL builds the provider redirect URL for the login flow.
func (c *Client) AuthCodeURL(state string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURL},
		"scope":         {oauthScopes},
		"state":         {state},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// ExchangeCode swaps an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return c.tokenRequest(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"redirect_uri":  c.cfg.RedirectURL,
	})
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	return c.tokenRequest(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	})
}

func (c *Client) tokenRequest(ctx context.Context, form map[string]string) (*Token, error) {
	client := resty.New().SetTimeout(c.cfg.Timeout)

	var token Token
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		SetResult(&token).
		Post(c.cfg.TokenURL)

	if err != nil {
		return nil, fmt.Errorf("patreon token request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("patreon token endpoint returned status %d", resp.StatusCode())
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("patreon token response missing access token")
	}

	return &token, nil
}
