package google

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"gdqcal/internal/config"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const redirectURL = "http://localhost:8081/"

// Scopes covers calendar list, calendar, event and ACL management.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar.events.owned",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/calendar.calendarlist",
	"https://www.googleapis.com/auth/calendar.calendars",
	"https://www.googleapis.com/auth/calendar.acls",
}

// OAuthConfig returns the OAuth2 client config.
// It prioritizes an explicit client id/secret over the credentials file.
func OAuthConfig(cfg config.GoogleConfig) (*oauth2.Config, error) {
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		return &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found. Provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or place the OAuth client file there", config.ErrConfiguration, cfg.CredentialsFile)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	oc, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse client secret file: %v", config.ErrConfiguration, err)
	}
	oc.RedirectURL = redirectURL
	return oc, nil
}

// Authorize runs the interactive consent flow: it prints the consent URL to
// out and reads the authorization code, or the full redirect URL, from in.
func Authorize(ctx context.Context, oc *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	state := uuid.NewString()
	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Go to the following link in your browser, then paste the "+
		"authorization code or the URL you were redirected to:\n%v\n", authURL)
	fmt.Fprint(out, "Authorization code: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}
	code, err := extractCode(strings.TrimSpace(line), state)
	if err != nil {
		return nil, err
	}

	token, err := oc.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return token, nil
}

// extractCode accepts either a bare code or a pasted redirect URL.
func extractCode(input, state string) (string, error) {
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if got := q.Get("state"); got != "" && got != state {
		return "", errors.New("authorization state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("no authorization code in redirect URL")
	}
	return code, nil
}

// LoadOrAuthorize reuses the stored token when present, otherwise runs the
// interactive flow and persists the result.
func LoadOrAuthorize(ctx context.Context, logger *slog.Logger, oc *oauth2.Config, tokenFile string, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	token, err := TokenFromFile(tokenFile)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load token %s: %w", tokenFile, err)
	}

	logger.Info("No stored Google token, starting authorization.", "file", tokenFile)
	token, err = Authorize(ctx, oc, in, out)
	if err != nil {
		return nil, err
	}
	if err := SaveToken(tokenFile, token); err != nil {
		return nil, err
	}
	logger.Info("Saved Google token.", "file", tokenFile)
	return token, nil
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// persistingTokenSource writes every newly issued token back to disk, so a
// refreshed token survives the process.
type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	path   string
	last   string
	logger *slog.Logger
}

func newPersistingTokenSource(logger *slog.Logger, base oauth2.TokenSource, path string, initial *oauth2.Token) *persistingTokenSource {
	s := &persistingTokenSource{base: base, path: path, logger: logger}
	if initial != nil {
		s.last = initial.AccessToken
	}
	return s
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("Failed to persist refreshed token", "file", s.path, "error", err)
		} else {
			s.logger.Debug("Persisted refreshed token", "file", s.path)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
