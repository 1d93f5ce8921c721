package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"animaldash/internal/core"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials holds the credential material for the Sheets client. The
// first non-empty source wins, in field order.
type Credentials struct {
	TokenJSON          string // authorized-user token, inline
	TokenFile          string // authorized-user token, path
	ServiceAccountJSON string
	ServiceAccountFile string
}

// authorizedUser is the token layout written by google-auth's
// Credentials.to_json and by cmd/oauth-init. The oauth2.Token field
// names are accepted as well.
type authorizedUser struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// jsonUnmarshal is an indirection to ease testing
var jsonUnmarshal = json.Unmarshal

func (c Credentials) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tokenJSON := []byte(strings.TrimSpace(c.TokenJSON))
	if len(tokenJSON) == 0 && strings.TrimSpace(c.TokenFile) != "" {
		b, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read token file: %v", core.ErrAuthentication, err)
		}
		tokenJSON = b
	}
	if len(tokenJSON) > 0 {
		return authorizedUserTokenSource(ctx, tokenJSON)
	}

	saJSON := []byte(strings.TrimSpace(c.ServiceAccountJSON))
	if len(saJSON) == 0 && strings.TrimSpace(c.ServiceAccountFile) != "" {
		b, err := os.ReadFile(c.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read service account file: %v", core.ErrAuthentication, err)
		}
		saJSON = b
	}
	if len(saJSON) > 0 {
		cfg, err := oauthgoogle.JWTConfigFromJSON(saJSON, gsheet.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("%w: service account: %v", core.ErrAuthentication, err)
		}
		if cfg.Email == "" || len(cfg.PrivateKey) == 0 {
			return nil, fmt.Errorf("%w: service account json needs client_email and private_key", core.ErrAuthentication)
		}
		return cfg.TokenSource(ctx), nil
	}

	return nil, fmt.Errorf("%w: missing credentials (set TOKEN_JSON, GOOGLE_OAUTH_TOKEN_JSON, GOOGLE_OAUTH_TOKEN_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)", core.ErrAuthentication)
}

func authorizedUserTokenSource(ctx context.Context, data []byte) (oauth2.TokenSource, error) {
	cfg, tok, err := parseAuthorizedUser(data)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

// authTokenSource reports token failures as core.ErrAuthentication.
// Transport errors reaching the token endpoint pass through untouched.
type authTokenSource struct {
	src oauth2.TokenSource
}

func (a authTokenSource) Token() (*oauth2.Token, error) {
	tok, err := a.src.Token()
	if err == nil {
		return tok, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", core.ErrAuthentication, err)
}

// parseAuthorizedUser turns token JSON into an OAuth config and token.
func parseAuthorizedUser(data []byte) (*oauth2.Config, *oauth2.Token, error) {
	var au authorizedUser
	if err := jsonUnmarshal(data, &au); err != nil {
		return nil, nil, fmt.Errorf("%w: token json: %v", core.ErrAuthentication, err)
	}

	access := au.Token
	if access == "" {
		access = au.AccessToken
	}
	if access == "" && au.RefreshToken == "" {
		return nil, nil, fmt.Errorf("%w: token json has neither access nor refresh token", core.ErrAuthentication)
	}
	if au.RefreshToken != "" && (au.ClientID == "" || au.ClientSecret == "") {
		return nil, nil, fmt.Errorf("%w: token json has a refresh token but no client_id/client_secret", core.ErrAuthentication)
	}

	endpoint := oauthgoogle.Endpoint
	if au.TokenURI != "" {
		endpoint.TokenURL = au.TokenURI
	}
	scopes := au.Scopes
	if len(scopes) == 0 {
		scopes = []string{gsheet.SpreadsheetsReadonlyScope}
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: au.RefreshToken,
		TokenType:    "Bearer",
	}
	if au.Expiry != "" {
		tok.Expiry = parseExpiry(au.Expiry)
	}

	return &oauth2.Config{
		ClientID:     au.ClientID,
		ClientSecret: au.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}, tok, nil
}

// parseExpiry returns a time in the past for unreadable values so the
// token is refreshed rather than trusted forever.
func parseExpiry(s string) time.Time {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Unix(1, 0)
}
