package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/calegria/mp3tube/config"
)

var (
	// ErrNotAuthenticated is returned when no cached token exists.
	ErrNotAuthenticated = errors.New("not authenticated with YouTube; run 'mp3tube auth' first")
	// ErrMissingSecrets is returned when the OAuth client secrets file is absent.
	ErrMissingSecrets = errors.New("OAuth2 client secrets file not found")
)

const secretsHelp = `To set up YouTube uploads:
 1. Go to https://console.cloud.google.com/
 2. Create a new project (or select an existing one)
 3. Enable 'YouTube Data API v3'
 4. Create OAuth 2.0 credentials of type 'Desktop app'
 5. Download the JSON file and save it as: %s

Or pass --client-secrets to point at a different path.`

// oauthConfig builds the installed-app OAuth config from the client secrets
// file named by creds.
func oauthConfig(creds config.Credentials) (*oauth2.Config, error) {
	data, err := os.ReadFile(creds.ClientSecretsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrMissingSecrets,
				"%s\n\n"+secretsHelp, creds.ClientSecretsFile, creds.ClientSecretsFile)
		}
		return nil, errors.Wrap(err, "failed to read client secrets")
	}

	conf, err := google.ConfigFromJSON(data, yt.YoutubeUploadScope, yt.YoutubeReadonlyScope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse client secrets")
	}
	return conf, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, errors.Wrapf(err, "failed to parse token cache %s", path)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create credentials directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "failed to write token cache %s", path)
	}
	defer f.Close()

	return errors.WithStack(json.NewEncoder(f).Encode(tok))
}

// InstallClientSecrets copies a downloaded client secrets file into the
// credentials directory so later invocations find it at the fixed path.
func InstallClientSecrets(src string, creds config.Credentials) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, "failed to read client secrets %s", src)
	}
	if err := os.MkdirAll(filepath.Dir(creds.ClientSecretsFile), 0700); err != nil {
		return errors.Wrap(err, "failed to create credentials directory")
	}
	return errors.Wrap(os.WriteFile(creds.ClientSecretsFile, data, 0600),
		"failed to install client secrets")
}

// Authorize runs the interactive consent flow: it prints the consent URL to
// out, reads the authorization code from in, exchanges it, and persists the
// token to the cache file.
func Authorize(ctx context.Context, creds config.Credentials, in io.Reader, out io.Writer) error {
	conf, err := oauthConfig(creds)
	if err != nil {
		return err
	}

	url := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this URL in your browser and grant access:\n\n  %s\n\nEnter the authorization code: ", url)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return errors.Wrap(err, "failed to read authorization code")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "failed to exchange authorization code")
	}

	return saveToken(creds.TokenFile, tok)
}

// tokenSource returns a refreshing token source backed by the cache file,
// persisting the token whenever the refresh produced a new one. Single-writer
// access to the cache file is assumed.
func tokenSource(ctx context.Context, creds config.Credentials) (oauth2.TokenSource, error) {
	conf, err := oauthConfig(creds)
	if err != nil {
		return nil, err
	}

	cached, err := loadToken(creds.TokenFile)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	ts := conf.TokenSource(ctx, cached)
	fresh, err := ts.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed to refresh OAuth token")
	}
	if fresh.AccessToken != cached.AccessToken {
		if err := saveToken(creds.TokenFile, fresh); err != nil {
			return nil, err
		}
	}

	return oauth2.ReuseTokenSource(fresh, ts), nil
}
