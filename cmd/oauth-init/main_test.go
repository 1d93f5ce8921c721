package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

func TestNewAuthorizedUser(t *testing.T) {
	cfg := &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: "https://oauth2.googleapis.com/token"},
		Scopes:       []string{"https://www.googleapis.com/auth/spreadsheets.readonly"},
	}
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC),
	}

	got := newAuthorizedUser(cfg, tok)
	want := authorizedUser{
		Token:        "access",
		RefreshToken: "refresh",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "cid",
		ClientSecret: "secret",
		Scopes:       []string{"https://www.googleapis.com/auth/spreadsheets.readonly"},
		Expiry:       "2024-05-01T03:00:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("authorized user mismatch (-want +got):\n%s", diff)
	}

	if got := newAuthorizedUser(cfg, &oauth2.Token{AccessToken: "a"}); got.Expiry != "" {
		t.Errorf("zero expiry should be omitted, got %q", got.Expiry)
	}
}

func TestWriteToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := writeToken(path, authorizedUser{Token: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["token"] != "a" || m["refresh_token"] != "r" {
		t.Errorf("unexpected token file: %s", b)
	}
	if _, ok := m["expiry"]; ok {
		t.Error("empty expiry should be omitted")
	}
}

func TestWriteToken_DirectoryPath(t *testing.T) {
	if err := writeToken(t.TempDir(), authorizedUser{Token: "a"}); err == nil {
		t.Fatal("expected error writing token over a directory")
	}
}

func TestAwaitCode(t *testing.T) {
	codeCh := make(chan string, 1)
	codeCh <- "the-code"
	code, err := awaitCode(context.Background(), codeCh, nil, time.Minute)
	if err != nil || code != "the-code" {
		t.Fatalf("awaitCode = %q, %v", code, err)
	}
}

func TestAwaitCode_ServerFailure(t *testing.T) {
	serveErr := make(chan error, 1)
	serveErr <- errors.New("address already in use")

	start := time.Now()
	_, err := awaitCode(context.Background(), make(chan string), serveErr, time.Minute)
	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Fatalf("expected callback server error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("server failure should not wait for the timeout")
	}
}

func TestAwaitCode_TimeoutAndCancel(t *testing.T) {
	_, err := awaitCode(context.Background(), make(chan string), nil, 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = awaitCode(ctx, make(chan string), nil, time.Minute)
	if err == nil || !strings.Contains(err.Error(), "interrupted") {
		t.Fatalf("expected interruption, got %v", err)
	}
}

func TestRandomState(t *testing.T) {
	a, b := randomState(), randomState()
	if len(a) != 32 || a == b {
		t.Errorf("states %q %q", a, b)
	}
}
