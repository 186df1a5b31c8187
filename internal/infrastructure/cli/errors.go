package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/migration"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/azdo"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s\n  Hint: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// friendlyError converts known domain errors into CLIErrors with actionable
// hints. Unmapped errors are returned as-is.
func friendlyError(err error) error {
	if err == nil {
		return nil
	}

	var unknownProject *application.UnknownProjectError
	if errors.As(err, &unknownProject) {
		return NewCLIError(
			unknownProject.Error(),
			"Run 'shiplift doctor' to list the projects this PAT can see",
			err,
		)
	}

	var unknownRepo *migration.UnknownRepoError
	if errors.As(err, &unknownRepo) {
		return NewCLIError(
			unknownRepo.Error(),
			"Run 'shiplift report' to list the repositories in the current scan",
			err,
		)
	}

	var badVisibility *migration.InvalidVisibilityError
	if errors.As(err, &badVisibility) {
		return NewCLIError(badVisibility.Error(), "Use --visibility private, internal, or public", err)
	}

	var adoAuth *azdo.AuthError
	if errors.As(err, &adoAuth) {
		return NewCLIError(
			"Azure DevOps rejected the personal access token",
			"Check the PAT is current and has Code, Build, and Work Items read scopes",
			err,
		)
	}

	var ghAuth *github.CredentialsError
	if errors.As(err, &ghAuth) {
		return NewCLIError(
			"GitHub rejected the token",
			"Check the token is current and carries the read:org scope",
			err,
		)
	}

	var ghOrg *github.OrgNotFoundError
	if errors.As(err, &ghOrg) {
		return NewCLIError(ghOrg.Error(), "Check the organization name and the token's access to it", err)
	}

	switch {
	case errors.Is(err, application.ErrNotConfigured), errors.Is(err, domain.ErrConfigNotFound):
		return NewCLIError("no organization configured", "Run 'shiplift configure' first", err)
	case errors.Is(err, application.ErrNoReport), errors.Is(err, domain.ErrReportNotFound):
		return NewCLIError("no scan report available", "Run 'shiplift scan' first", err)
	case errors.Is(err, application.ErrScanInProgress):
		return NewCLIError("a scan is already in progress", "Watch it with 'shiplift status' and retry when it finishes", err)
	case errors.Is(err, application.ErrMigrationInProgress):
		return NewCLIError("a migration is already in progress", "Watch it with 'shiplift status' and retry when it finishes", err)
	case errors.Is(err, application.ErrGitHubNotConfigured):
		return NewCLIError("github credentials are not configured", "Re-run 'shiplift configure' with --github-token and --github-org", err)
	case errors.Is(err, github.ErrNoToken):
		return NewCLIError("github token not configured", "Re-run 'shiplift configure' with --github-token", err)
	case errors.Is(err, migration.ErrNoRepositories):
		return NewCLIError("no repositories selected", "Pass at least one --repo", err)
	case errors.Is(err, migration.ErrNoTargetOrg):
		return NewCLIError("no target organization", "Pass --target-org or configure a default with 'shiplift configure --github-org'", err)
	}

	return err
}
