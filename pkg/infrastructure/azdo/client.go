// Package azdo is a REST client for the Azure DevOps services API, covering
// the read surface a readiness scan needs.
package azdo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

const apiVersion = "7.1"

// AuthError signals a rejected or expired personal access token. The service
// answers bad credentials with a redirect to the sign-in page rather than a
// 401, so redirects on API calls are treated as authentication failures.
type AuthError struct{}

func (e *AuthError) Error() string {
	return "authentication failed: verify the personal access token is valid and has not expired"
}

// APIError is a non-success response from the service.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure devops api returned %s for %s", e.Status, e.URL)
}

type Client struct {
	organizationURL string
	pat             string
	httpClient      *http.Client
	retryConfig     retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The redirect policy is
// preserved so auth redirects still surface as errors.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryConfig replaces the per-request retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// NewClient creates a client for the given organization.
func NewClient(organizationURL, pat string, opts ...Option) *Client {
	c := &Client{
		organizationURL: strings.TrimRight(organizationURL, "/"),
		pat:             pat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  500 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Auth failures arrive as redirects to the sign-in page. Never follow them.
	c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return c
}

// OrganizationURL returns the organization the client talks to.
func (c *Client) OrganizationURL() string {
	return c.organizationURL
}

// apiURL builds {org}[/{project}]/_apis/{path}?api-version=7.1&params.
func (c *Client) apiURL(project, path string, params url.Values) string {
	base := c.organizationURL
	if project != "" {
		base += "/" + url.PathEscape(project)
	}
	u := base + "/_apis/" + path

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api-version", apiVersion)
	return u + "?" + q.Encode()
}

// listPage is one page of a list response.
type listPage struct {
	Count             int               `json:"count"`
	Value             []json.RawMessage `json:"value"`
	ContinuationToken string            `json:"continuationToken"`
}

// doJSON performs one request and decodes the body into out.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("", c.pat)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close after read

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		return &AuthError{}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

// pageWithHeader carries one decoded page plus the continuation header.
type pageWithHeader struct {
	page  listPage
	token string
}

// getAll drains a paginated list endpoint, following continuation tokens from
// both the response header and the body until the listing is exhausted.
func (c *Client) getAll(ctx context.Context, project, path string, params url.Values) ([]json.RawMessage, error) {
	var items []json.RawMessage
	token := ""

	retryer := retry.New[pageWithHeader](c.retryConfig)

	for {
		q := url.Values{}
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		if token != "" {
			q.Set("continuationToken", token)
		}
		rawURL := c.apiURL(project, path, q)

		result, err := retryer.Do(ctx, func(ctx context.Context) (pageWithHeader, error) {
			return c.getPage(ctx, rawURL)
		})
		if err != nil {
			return nil, err
		}

		items = append(items, result.page.Value...)

		token = result.token
		if token == "" {
			token = result.page.ContinuationToken
		}
		if token == "" {
			return items, nil
		}
	}
}

func (c *Client) getPage(ctx context.Context, rawURL string) (pageWithHeader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return pageWithHeader{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("", c.pat)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pageWithHeader{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close after read

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		return pageWithHeader{}, &AuthError{}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pageWithHeader{}, &APIError{StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}

	var page listPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return pageWithHeader{}, fmt.Errorf("decode response from %s: %w", rawURL, err)
	}

	return pageWithHeader{
		page:  page,
		token: resp.Header.Get("x-ms-continuationtoken"),
	}, nil
}
