package google

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gdqcal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestOAuthConfig_FromClientID(t *testing.T) {
	oc, err := OAuthConfig(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "id", oc.ClientID)
	assert.Equal(t, Scopes, oc.Scopes)
	assert.Contains(t, oc.Scopes, "https://www.googleapis.com/auth/calendar.acls")
	assert.Contains(t, oc.Scopes, "https://www.googleapis.com/auth/calendar.calendarlist")
}

func TestOAuthConfig_FromCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"file-id","client_secret":"file-secret",` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
		`"redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(creds), 0o600))

	oc, err := OAuthConfig(config.GoogleConfig{CredentialsFile: path})
	require.NoError(t, err)
	assert.Equal(t, "file-id", oc.ClientID)
	assert.Equal(t, redirectURL, oc.RedirectURL)
}

func TestOAuthConfig_MissingCredentials(t *testing.T) {
	_, err := OAuthConfig(config.GoogleConfig{CredentialsFile: filepath.Join(t.TempDir(), "nope.json")})
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestExtractCode(t *testing.T) {
	code, err := extractCode("4/abc", "s1")
	require.NoError(t, err)
	assert.Equal(t, "4/abc", code)

	code, err = extractCode("http://localhost:8081/?state=s1&code=4%2Fxyz&scope=a", "s1")
	require.NoError(t, err)
	assert.Equal(t, "4/xyz", code)

	_, err = extractCode("http://localhost:8081/?state=other&code=4%2Fxyz", "s1")
	assert.Error(t, err)

	_, err = extractCode("", "s1")
	assert.Error(t, err)
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadOrAuthorize_RunsFlowAndPersists(t *testing.T) {
	srv := newTokenServer(t)
	oc := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}
	tokenFile := filepath.Join(t.TempDir(), "token.json")

	var out bytes.Buffer
	tok, err := LoadOrAuthorize(context.Background(), testLogger(), oc, tokenFile, strings.NewReader("the-code\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Contains(t, out.String(), srv.URL+"/auth")

	saved, err := TokenFromFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", saved.RefreshToken)

	// A second call reuses the stored token without prompting.
	tok, err = LoadOrAuthorize(context.Background(), testLogger(), oc, tokenFile, strings.NewReader(""), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
}

type sequenceSource struct {
	tokens []*oauth2.Token
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return tok, nil
}

func TestPersistingTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	initial := &oauth2.Token{AccessToken: "a1"}
	refreshed := &oauth2.Token{AccessToken: "a2", RefreshToken: "r"}
	src := newPersistingTokenSource(testLogger(), &sequenceSource{tokens: []*oauth2.Token{initial, refreshed}}, path, initial)

	_, err := src.Token()
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "unchanged token is not written")

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "a2", tok.AccessToken)

	saved, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a2", saved.AccessToken)
}
