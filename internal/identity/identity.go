// Package identity wraps the Discord OAuth2 authorization-code exchange and
// the follow-up identity lookup. The access token is used once to resolve the
// user and is never stored.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

const defaultAPIURL = "https://discord.com/api/v10"

var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// User is the subset of the provider's identity this system reads.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Client struct {
	oauth  *oauth2.Config
	apiURL string
}

func New(cfg Config) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		},
		apiURL: defaultAPIURL,
	}
}

// AuthorizeURL builds the consent-page URL a member is sent to from the
// in-chat auth prompt.
func (c *Client) AuthorizeURL() string {
	return c.oauth.AuthCodeURL("")
}

// ExchangeCode trades a single-use authorization code for a bearer token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("scope", "identify"))
}

// FetchUser resolves the authenticated user behind the token via /users/@me.
func (c *Client) FetchUser(ctx context.Context, token *oauth2.Token) (User, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/users/@me", nil)
	if err != nil {
		return User{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return User{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("identity fetch returned status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, err
	}
	return user, nil
}
