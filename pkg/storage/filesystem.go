// Package storage persists shiplift artifacts under the workspace directory.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"gopkg.in/yaml.v3"
)

const ShipliftDir = ".shiplift"
const ConfigFile = "config.yaml"
const ReportFile = "report.json"
const JournalFile = "journal.jsonl"

// Environment variables honored by the store.
const (
	EnvHome        = "SHIPLIFT_HOME"
	EnvADOPAT      = "SHIPLIFT_ADO_PAT"
	EnvGitHubToken = "SHIPLIFT_GITHUB_TOKEN"
)

// WorkspaceDir resolves the workspace directory: SHIPLIFT_HOME when set,
// otherwise ~/.shiplift.
func WorkspaceDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ShipliftDir), nil
}

type FilesystemRepository struct {
	dir         string
	retryConfig retry.Config

	journalMu     sync.Mutex
	lastHash      string
	lastHashKnown bool
}

// NewFilesystemRepository creates a store rooted at the given workspace
// directory.
func NewFilesystemRepository(dir string) *FilesystemRepository {
	return &FilesystemRepository{
		dir: dir,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Dir returns the workspace directory.
func (r *FilesystemRepository) Dir() string {
	return r.dir
}

// ResolvePath ensures the path is within the workspace directory and prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Clean(r.dir)
	fullPath := filepath.Join(baseDir, filename)
	cleanPath := filepath.Clean(fullPath)

	// Check for traversal and ensure it's a direct child of the workspace
	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(r.dir, 0700); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.dir)
	return err == nil
}

func (r *FilesystemRepository) SaveConfig(cfg *domain.Config) error {
	if err := r.Initialize(); err != nil {
		return err
	}

	path, err := r.ResolvePath(ConfigFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// G306: Use 0600 for files
	return os.WriteFile(path, data, 0600)
}

// LoadConfig reads config.yaml and applies secret overrides from the
// environment.
func (r *FilesystemRepository) LoadConfig() (*domain.Config, error) {
	path, err := r.ResolvePath(ConfigFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, domain.ErrConfigNotFound
	}

	retryer := retry.New[*domain.Config](r.retryConfig)

	cfg, err := retryer.Do(context.Background(), func(ctx context.Context) (*domain.Config, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var c domain.Config
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}

		return &c, nil
	})
	if err != nil {
		return nil, err
	}

	if pat := os.Getenv(EnvADOPAT); pat != "" {
		cfg.PAT = pat
	}
	if token := os.Getenv(EnvGitHubToken); token != "" {
		cfg.GitHubToken = token
	}
	return cfg, nil
}

// DeleteConfig removes the stored configuration. Deleting a missing config
// is not an error.
func (r *FilesystemRepository) DeleteConfig() error {
	path, err := r.ResolvePath(ConfigFile)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	return nil
}

// SaveReport writes the report atomically: a temp file in the workspace is
// renamed over the previous report so readers never observe a partial write.
func (r *FilesystemRepository) SaveReport(report *assessment.Report) error {
	if err := r.Initialize(); err != nil {
		return err
	}

	path, err := r.ResolvePath(ReportFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "report-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp report file: %w", err)
	}
	tmpName := tmp.Name()

	// G306: Use 0600 for files
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close() //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("failed to restrict temp report file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("failed to write temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("failed to close temp report file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("failed to replace report file: %w", err)
	}
	return nil
}

// LoadReport reads and validates the current report. The document is checked
// against the report schema before decoding so a corrupt or foreign file is
// rejected with a clear error.
func (r *FilesystemRepository) LoadReport() (*assessment.Report, error) {
	path, err := r.ResolvePath(ReportFile)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, domain.ErrReportNotFound
	}

	retryer := retry.New[*assessment.Report](r.retryConfig)

	return retryer.Do(context.Background(), func(ctx context.Context) (*assessment.Report, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read report file: %w", err)
		}

		return DecodeReport(data)
	})
}

// HasReport reports whether a scan report exists in the workspace.
func (r *FilesystemRepository) HasReport() bool {
	path, err := r.ResolvePath(ReportFile)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// DecodeReport validates raw report bytes against the schema and decodes
// them. Used both for the workspace report and for imported files.
func DecodeReport(data []byte) (*assessment.Report, error) {
	if err := ValidateReport(data); err != nil {
		return nil, err
	}

	var report assessment.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
