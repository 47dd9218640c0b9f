package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// TokenFilePath returns where tokens are kept below the tlm data directory.
func TokenFilePath(base string) string {
	return filepath.Join(base, "auth", "msgraph_tokens.json")
}

// oauth2Config returns the oauth2.Config for Microsoft Graph using the
// provided tenant and client IDs.
func oauth2Config(tenantID, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(tenantID, "devicecode"),
			TokenURL:      msEndpoint(tenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// loadToken loads a previously saved token from disk. A missing file is
// not an error.
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// saveToken persists a token to disk.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Authenticate returns a Graph client for the signed-in user. It loads the
// token saved under base, refreshes it if needed, or runs the device code
// flow when no usable token is available.
func Authenticate(ctx context.Context, base, tenantID, clientID string) (*Client, error) {
	cfg := oauth2Config(tenantID, clientID)
	path := TokenFilePath(base)

	tok, err := loadToken(path)
	if err != nil {
		// Corrupt token — warn and re-auth.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		tok = nil
	}

	if tok != nil && !tok.Valid() && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if err2 := saveToken(path, refreshed); err2 != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save refreshed token: %v\n", err2)
			}
			tok = refreshed
		} else {
			fmt.Fprintf(os.Stderr, "Token refresh failed (%v), re-authenticating...\n", err)
			tok = nil
		}
	}

	if tok == nil || !tok.Valid() {
		resp, err := cfg.DeviceAuth(ctx)
		if err != nil {
			return nil, fmt.Errorf("device auth request failed: %w", err)
		}

		fmt.Println()
		fmt.Println("To sign in, use a web browser to open the page:")
		fmt.Printf("  %s\n", resp.VerificationURI)
		fmt.Printf("Enter the code: %s\n", resp.UserCode)
		fmt.Println()

		tok, err = cfg.DeviceAccessToken(ctx, resp)
		if err != nil {
			return nil, fmt.Errorf("device authentication failed: %w", err)
		}
		if err := saveToken(path, tok); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save token: %v\n", err)
		}
	}

	ts := &savingTokenSource{ts: cfg.TokenSource(ctx, tok), path: path}
	return NewClient(oauth2.NewClient(ctx, ts), ""), nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// Best-effort save; ignore errors.
		_ = saveToken(s.path, tok)
	}
	return tok, nil
}
