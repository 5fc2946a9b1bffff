package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// GmailClient builds an OAuth2 HTTP client from the Google client-secret file
// and a previously authorized token file. Refreshed tokens are written back to
// tokenFile so the session survives restarts.
func GmailClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gmail auth: read client secret: %w", err)
	}

	// Read-only access is enough to classify replies.
	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gmail auth: parse client secret: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("gmail auth: no authorized token at %s (run the consent flow once and save the token): %w", tokenFile, err)
	}

	src := &savingSource{
		base: config.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// ConsentURL returns the URL an operator opens to authorize Gmail access.
func ConsentURL(credentialsFile string) (string, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", fmt.Errorf("gmail auth: read client secret: %w", err)
	}
	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return "", fmt.Errorf("gmail auth: parse client secret: %w", err)
	}
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// savingSource persists a token whenever the underlying source refreshes it.
type savingSource struct {
	base oauth2.TokenSource
	path string
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("gmail auth: cache token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
