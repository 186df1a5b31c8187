// Package domain holds the workspace-level contracts shared by every
// shiplift service: the connection configuration and the persistence
// interface the storage layer implements.
package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Config is the serialized representation of config.yaml. It carries the
// source organization connection plus the optional destination credentials
// used during migration.
type Config struct {
	OrganizationURL string `json:"organization_url" yaml:"organization_url"`
	PAT             string `json:"pat" yaml:"pat"`
	DefaultProject  string `json:"default_project,omitempty" yaml:"default_project,omitempty"`
	GitHubToken     string `json:"github_token,omitempty" yaml:"github_token,omitempty"`
	GitHubOrg       string `json:"github_org,omitempty" yaml:"github_org,omitempty"`
}

// Validate checks that the config is complete enough to reach the source
// organization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OrganizationURL) == "" {
		return fmt.Errorf("organization URL is required")
	}
	u, err := url.Parse(c.OrganizationURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("organization URL %q is not a valid URL", c.OrganizationURL)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("organization URL must use http or https, got %q", u.Scheme)
	}
	if strings.TrimSpace(c.PAT) == "" {
		return fmt.Errorf("personal access token is required")
	}
	return nil
}

// Normalize trims whitespace and the trailing slash that organization URLs
// are often pasted with.
func (c *Config) Normalize() {
	c.OrganizationURL = strings.TrimRight(strings.TrimSpace(c.OrganizationURL), "/")
	c.PAT = strings.TrimSpace(c.PAT)
	c.DefaultProject = strings.TrimSpace(c.DefaultProject)
	c.GitHubToken = strings.TrimSpace(c.GitHubToken)
	c.GitHubOrg = strings.TrimSpace(c.GitHubOrg)
}

// HasGitHub reports whether destination credentials are present.
func (c *Config) HasGitHub() bool {
	return c.GitHubToken != ""
}

// Redacted returns a copy safe to print or serve: secrets are masked down to
// their last four characters.
func (c *Config) Redacted() Config {
	out := *c
	out.PAT = maskSecret(c.PAT)
	out.GitHubToken = maskSecret(c.GitHubToken)
	return out
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
