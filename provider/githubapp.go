package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/randalmurphal/shipflow/auth"
	sferrors "github.com/randalmurphal/shipflow/errors"
)

// NewGitHubAppProvider creates a GitHub provider authenticated as a
// GitHub App installation instead of a personal access token. The app
// key is validated up front; installation tokens are minted lazily on
// the first API call and refreshed when they expire, so construction
// never touches the network.
func NewGitHubAppProvider(appID, keyPath, projectPath string, timeout time.Duration) (*GitHubProvider, error) {
	if appID == "" {
		return nil, &sferrors.AuthError{Platform: "github", Err: fmt.Errorf("no App ID configured")}
	}
	owner, repo, ok := strings.Cut(projectPath, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid GitHub project path %q, want owner/repo", projectPath)
	}

	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &sferrors.AuthError{Platform: "github", Err: fmt.Errorf("read app key: %w", err)}
	}
	// Mint once now so a bad key fails at construction, not mid-run.
	if _, err := auth.MintAppJWT(auth.AppConfig{AppID: appID, PrivateKeyPEM: pemBytes}); err != nil {
		return nil, &sferrors.AuthError{Platform: "github", Err: err}
	}

	src := &appTokenSource{
		appID:   appID,
		keyPEM:  pemBytes,
		owner:   owner,
		repo:    repo,
		timeout: timeout,
	}
	tc := oauth2.NewClient(context.Background(), oauth2.ReuseTokenSource(nil, src))

	return &GitHubProvider{
		client:  github.NewClient(tc),
		owner:   owner,
		repo:    repo,
		timeout: timeout,
	}, nil
}

// appTokenSource exchanges a freshly minted app JWT for an installation
// token scoped to the provider's repository. oauth2.ReuseTokenSource
// caches the result until the token's expiry.
type appTokenSource struct {
	appID   string
	keyPEM  []byte
	owner   string
	repo    string
	timeout time.Duration
}

// Token implements oauth2.TokenSource.
func (s *appTokenSource) Token() (*oauth2.Token, error) {
	jwtStr, err := auth.MintAppJWT(auth.AppConfig{AppID: s.appID, PrivateKeyPEM: s.keyPEM})
	if err != nil {
		return nil, &sferrors.AuthError{Platform: "github", Err: err}
	}

	ctx, cancel := callCtx(context.Background(), s.timeout)
	defer cancel()

	appClient := github.NewClient(nil).WithAuthToken(jwtStr)
	inst, resp, err := appClient.Apps.FindRepositoryInstallation(ctx, s.owner, s.repo)
	if err != nil {
		return nil, sferrors.ClassifyAPIError("github", "find app installation", statusCode(resp), err)
	}

	tok, resp, err := appClient.Apps.CreateInstallationToken(ctx, inst.GetID(), nil)
	if err != nil {
		return nil, sferrors.ClassifyAPIError("github", "create installation token", statusCode(resp), err)
	}

	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}
