// Package gei drives the GitHub Enterprise Importer extension of the gh CLI
// to move a single repository from Azure DevOps to GitHub. The transfer
// protocol itself stays inside the tool; this package only invokes it,
// follows its output, and reports how far along it looks.
package gei

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"go.uber.org/zap"
)

const (
	defaultBinary  = "gh"
	defaultTimeout = 30 * time.Minute

	// detailLimit caps progress messages and error details so a chatty tool
	// cannot flood status payloads.
	detailLimit = 200
)

// ToolError is a failed tool invocation: a non-zero exit, a missing binary,
// or a broken pipe. Detail carries the tail of the captured output.
type ToolError struct {
	ExitCode int
	Detail   string
}

func (e *ToolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("gh ado2gh exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("gh ado2gh exited with code %d: %s", e.ExitCode, e.Detail)
}

// MigrateRequest identifies one repository move.
type MigrateRequest struct {
	ADOOrg      string
	ADOProject  string
	ADORepo     string
	GitHubOrg   string
	GitHubRepo  string
	ADOPAT      string
	GitHubToken string
	// Visibility of the created repository. Empty or "private" omits the
	// flag; the tool creates private repositories by default.
	Visibility string
}

// ProgressFunc receives monotonic progress estimates while the tool runs.
type ProgressFunc func(percent int, message string)

// Invoker runs gh ado2gh migrations, one repository per call.
type Invoker struct {
	binary      string
	repoTimeout time.Duration
	logger      *zap.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithBinary replaces the gh executable, usually with a stub in tests.
func WithBinary(path string) Option {
	return func(inv *Invoker) {
		inv.binary = path
	}
}

// WithTimeout bounds a single migration run.
func WithTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		inv.repoTimeout = d
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(inv *Invoker) {
		inv.logger = logger
	}
}

// NewInvoker creates an invoker with a 30 minute per-repository timeout.
func NewInvoker(opts ...Option) *Invoker {
	inv := &Invoker{
		binary:      defaultBinary,
		repoTimeout: defaultTimeout,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(inv)
	}

	return inv
}

// Migrate runs one repository move, invoking progress as the tool prints.
// It blocks until the tool exits, the context is cancelled, or the
// per-repository timeout fires.
func (inv *Invoker) Migrate(ctx context.Context, req MigrateRequest, progress ProgressFunc) error {
	t := timeout.New[struct{}](timeout.Config{
		DefaultTimeout: inv.repoTimeout,
	})

	_, err := t.Execute(ctx, inv.repoTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, inv.run(ctx, req, progress)
	})
	return err
}

func (inv *Invoker) run(ctx context.Context, req MigrateRequest, progress ProgressFunc) error {
	args := []string{
		"ado2gh", "migrate-repo",
		"--ado-org", req.ADOOrg,
		"--ado-team-project", req.ADOProject,
		"--ado-repo", req.ADORepo,
		"--github-org", req.GitHubOrg,
		"--github-repo", req.GitHubRepo,
	}
	if req.Visibility != "" && req.Visibility != "private" {
		args = append(args, "--target-repo-visibility", req.Visibility)
	}

	cmd := exec.CommandContext(ctx, inv.binary, args...)
	// Tokens travel through the environment, never the command line.
	cmd.Env = append(os.Environ(), "ADO_PAT="+req.ADOPAT, "GH_PAT="+req.GitHubToken)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	inv.logger.Info("Starting repository migration",
		zap.String("ado_project", req.ADOProject),
		zap.String("ado_repo", req.ADORepo),
		zap.String("github_org", req.GitHubOrg),
		zap.String("github_repo", req.GitHubRepo))

	if err := cmd.Start(); err != nil {
		return &ToolError{ExitCode: -1, Detail: truncate(err.Error(), detailLimit)}
	}

	var tail string
	percent := 0

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = appendTail(tail, line)

		next, message := classifyLine(line, percent)
		if next > percent {
			percent = next
		}
		if progress != nil {
			progress(percent, message)
		}
	}
	// Drain whatever the scanner left so Wait cannot block on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			inv.logger.Warn("Migration tool failed",
				zap.String("ado_repo", req.ADORepo),
				zap.Int("exit_code", exitErr.ExitCode()))
			return &ToolError{ExitCode: exitErr.ExitCode(), Detail: tail}
		}
		return &ToolError{ExitCode: -1, Detail: truncate(err.Error(), detailLimit)}
	}

	inv.logger.Info("Migration tool finished", zap.String("ado_repo", req.ADORepo))
	return nil
}

// classifyLine maps a tool output line to a progress estimate. Milestone
// keywords pin known points; anything else nudges progress forward, capped
// below completion so only a milestone can report 100.
func classifyLine(line string, current int) (int, string) {
	message := truncate(line, detailLimit)
	lower := strings.ToLower(line)

	switch {
	case strings.Contains(lower, "complete"):
		return 100, message
	case strings.Contains(lower, "in progress"):
		return 60, message
	case strings.Contains(lower, "migration started"):
		return 25, message
	case strings.Contains(lower, "queued"):
		return 10, message
	}

	next := current + 5
	if next > 90 {
		next = 90
	}
	return next, message
}

func appendTail(tail, line string) string {
	if tail != "" {
		tail += "\n"
	}
	tail += line
	if len(tail) > detailLimit {
		tail = tail[len(tail)-detailLimit:]
	}
	return tail
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
