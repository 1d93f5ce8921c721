// Command oauth-init runs the installed-app consent flow once and writes
// token.json in the authorized-user layout the dashboard reads from
// TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"animaldash/internal/cli"
	applog "animaldash/internal/log"
)

// authorizedUser mirrors the token layout of google-auth's to_json.
type authorizedUser struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry,omitempty"`
}

func newAuthorizedUser(cfg *oauth2.Config, tok *oauth2.Token) authorizedUser {
	au := authorizedUser{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
	}
	if !tok.Expiry.IsZero() {
		au.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return au
}

func writeToken(path string, au authorizedUser) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(au); err != nil {
		_ = f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	return nil
}

func readClientSecret() ([]byte, error) {
	if v := os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"); v != "" {
		return []byte(v), nil
	}
	if p := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"); p != "" {
		return os.ReadFile(p)
	}
	if _, err := os.Stat("credentials.json"); err == nil {
		return os.ReadFile("credentials.json")
	}
	return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

func randomState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("state-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// awaitCode blocks until the callback delivers a code, the callback
// server fails, the timeout passes or ctx is done.
func awaitCode(ctx context.Context, codeCh <-chan string, serveErr <-chan error, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case code := <-codeCh:
		return code, nil
	case err := <-serveErr:
		return "", fmt.Errorf("callback server: %w", err)
	case <-timer.C:
		return "", errors.New("authorization timed out")
	case <-ctx.Done():
		return "", errors.New("interrupted")
	}
}

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err := run(logger); err != nil {
		logger.Error("OAuth setup failed", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeAuth)
		os.Exit(1)
	}
}

func run(logger *applog.Logger) error {
	b, err := readClientSecret()
	if err != nil {
		return err
	}
	cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return fmt.Errorf("oauth config: %w", err)
	}

	// The OAuth client must list this redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := randomState()
	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: "localhost:" + redirectPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authorization complete. You may close this window.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Callback server failed", applog.FieldError, err)
			serveErr <- err
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	fmt.Printf("Open this URL to authorize read access to your spreadsheets:\n%s\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err := awaitCode(ctx, codeCh, serveErr, 5*time.Minute)
	if err != nil {
		return err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}

	outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if outFile == "" {
		outFile = "token.json"
	}
	if err := writeToken(outFile, newAuthorizedUser(cfg, tok)); err != nil {
		return err
	}
	logger.Info("Saved token", "path", outFile)
	fmt.Printf("Saved token to %s. Export its contents as TOKEN_JSON or point GOOGLE_OAUTH_TOKEN_FILE at it.\n", outFile)
	return nil
}
