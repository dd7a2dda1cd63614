package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// TokenProvider yields a bearer credential for outbound API calls.
type TokenProvider interface {
	BearerToken(ctx context.Context) (string, error)
}

// ClientCredentialsProvider acquires tokens via the OAuth2 client-credentials
// flow against the configured authority. Tokens are cached by the underlying
// token source until expiry; one retry is attempted on a transient fetch
// failure.
type ClientCredentialsProvider struct {
	cfg *clientcredentials.Config

	mu     sync.Mutex
	source oauth2.TokenSource
}

func NewClientCredentialsProvider(env *config.AuthEnv) (*ClientCredentialsProvider, error) {
	if env.TenantID == "" || env.ClientID == "" || env.ClientSecret == "" {
		return nil, cerr.NewError(cerr.AuthUnavailable, "identity credentials not configured", nil)
	}
	return &ClientCredentialsProvider{
		cfg: &clientcredentials.Config{
			ClientID:     env.ClientID,
			ClientSecret: env.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", env.Authority, env.TenantID),
			Scopes:       []string{env.TokenScope},
		},
	}, nil
}

func (p *ClientCredentialsProvider) BearerToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.source == nil {
		p.source = p.cfg.TokenSource(context.Background())
	}
	source := p.source
	p.mu.Unlock()

	tok, err := source.Token()
	if err != nil {
		slog.WarnContext(ctx, "token acquisition failed, retrying once", "error", err)
		tok, err = source.Token()
	}
	if err != nil {
		return "", cerr.NewError(cerr.AuthUnavailable, "failed to acquire bearer token", err)
	}
	return tok.AccessToken, nil
}

// StaticTokenProvider returns a fixed token. Used for local development
// against stub APIs.
type StaticTokenProvider string

func (p StaticTokenProvider) BearerToken(context.Context) (string, error) {
	if p == "" {
		return "", cerr.NewError(cerr.AuthUnavailable, "static token is empty", nil)
	}
	return string(p), nil
}
