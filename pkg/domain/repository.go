package domain

import (
	"errors"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
)

// ErrConfigNotFound is returned when no configuration has been saved yet.
var ErrConfigNotFound = errors.New("configuration not found")

// ErrReportNotFound is returned when no scan has produced a report yet.
var ErrReportNotFound = errors.New("scan report not found")

// WorkspaceRepository handles the persistence of shiplift artifacts in the
// workspace directory.
type WorkspaceRepository interface {
	Initialize() error
	IsInitialized() bool
	SaveConfig(cfg *Config) error
	LoadConfig() (*Config, error)
	DeleteConfig() error
	SaveReport(report *assessment.Report) error
	LoadReport() (*assessment.Report, error)
	HasReport() bool
}
