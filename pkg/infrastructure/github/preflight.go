// Package github verifies the GitHub side of a migration before any work
// starts: the token must resolve to a login and the target organization must
// be visible to it.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"
)

// ErrNoToken means no GitHub token is configured.
var ErrNoToken = errors.New("github token not configured")

// CredentialsError signals a token the API rejected.
type CredentialsError struct{}

func (e *CredentialsError) Error() string {
	return "github authentication failed: verify the token is valid and has the read:org scope"
}

// OrgNotFoundError means the target organization does not exist or is not
// visible to the token.
type OrgNotFoundError struct {
	Org string
}

func (e *OrgNotFoundError) Error() string {
	return fmt.Sprintf("github organization %q not found or not visible to this token", e.Org)
}

// Result reports what a successful preflight resolved.
type Result struct {
	Login string
	Org   string
}

// Preflight checks GitHub credentials and target organization visibility.
type Preflight struct {
	token  string
	client *gh.Client
}

// Option configures a Preflight.
type Option func(*Preflight)

// WithBaseURL points the client at a different API endpoint. The URL must end
// in a trailing slash.
func WithBaseURL(u *url.URL) Option {
	return func(p *Preflight) {
		p.client.BaseURL = u
	}
}

// NewPreflight creates a preflight for the given token.
func NewPreflight(token string, opts ...Option) *Preflight {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	p := &Preflight{
		token:  token,
		client: gh.NewClient(oauth2.NewClient(context.Background(), src)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Check verifies that the token resolves to a login and, when org is not
// empty, that the organization is visible to it.
func (p *Preflight) Check(ctx context.Context, org string) (*Result, error) {
	if p.token == "" {
		return nil, ErrNoToken
	}

	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		if hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden) {
			return nil, &CredentialsError{}
		}
		return nil, fmt.Errorf("verify github token: %w", err)
	}

	result := &Result{Login: user.GetLogin()}
	if org == "" {
		return result, nil
	}

	resolved, _, err := p.client.Organizations.Get(ctx, org)
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, &OrgNotFoundError{Org: org}
		}
		return nil, fmt.Errorf("resolve github organization %q: %w", org, err)
	}
	result.Org = resolved.GetLogin()

	return result, nil
}

// hasStatus reports whether err is an API error response with the given
// status. Rate-limit errors are typed separately by the client library and
// intentionally do not match.
func hasStatus(err error, code int) bool {
	var respErr *gh.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == code
}
