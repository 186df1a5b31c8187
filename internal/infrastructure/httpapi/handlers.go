package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/migration"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
)

type configRequest struct {
	OrganizationURL string `json:"organization_url"`
	PAT             string `json:"pat"`
	GitHubToken     string `json:"github_token"`
	GitHubOrg       string `json:"github_org"`
	DefaultProject  string `json:"default_project"`
}

// configResponse is the outward projection of the stored config. Secrets
// never appear; presence flags do.
type configResponse struct {
	Configured      bool   `json:"configured"`
	OrganizationURL string `json:"organization_url,omitempty"`
	GitHubOrg       string `json:"github_org,omitempty"`
	HasGitHubToken  bool   `json:"has_github_token"`
}

type scanRequest struct {
	Project string `json:"project"`
}

type migrateRequest struct {
	Repos      []string `json:"repos"`
	TargetOrg  string   `json:"target_org"`
	Visibility string   `json:"visibility"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config.Current()
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			writeJSON(w, http.StatusOK, configResponse{Configured: false})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, configResponse{
		Configured:      true,
		OrganizationURL: cfg.OrganizationURL,
		GitHubOrg:       cfg.GitHubOrg,
		HasGitHubToken:  cfg.HasGitHub(),
	})
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := s.config.Configure(domain.Config{
		OrganizationURL: req.OrganizationURL,
		PAT:             req.PAT,
		GitHubToken:     req.GitHubToken,
		GitHubOrg:       req.GitHubOrg,
		DefaultProject:  req.DefaultProject,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, configResponse{
		Configured:      true,
		OrganizationURL: cfg.OrganizationURL,
		GitHubOrg:       cfg.GitHubOrg,
		HasGitHubToken:  cfg.HasGitHub(),
	})
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.config.Delete(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	status, err := s.config.TestConnection(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("Connected to %s (%d projects)", status.OrganizationURL, status.ProjectCount),
		"projects": status.Projects,
	})
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := s.scan.StartScan(r.Context(), req.Project); err != nil {
		var unknownErr *application.UnknownProjectError
		switch {
		case errors.Is(err, application.ErrScanInProgress):
			writeError(w, http.StatusConflict, "Scan already in progress")
		case errors.Is(err, application.ErrNotConfigured):
			writeError(w, http.StatusBadRequest, "Not configured")
		case errors.As(err, &unknownErr):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Scan started",
	})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scan.Status())
}

func (s *Server) handleScanResults(w http.ResponseWriter, r *http.Request) {
	report, err := s.scan.Results()
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "No scan results available")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	report, err := s.scan.Results()
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "No scan results available")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report.Repositories())
}

func (s *Server) handleStartMigration(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.migration.StartMigration(r.Context(), application.MigrationRequest{
		Repositories: req.Repos,
		TargetOrg:    req.TargetOrg,
		Visibility:   req.Visibility,
	})
	if err != nil {
		writeError(w, migrateErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":  true,
		"message":  "Migration started",
		"batch_id": snap.BatchID,
	})
}

func (s *Server) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.migration.Status()
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_started"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// migrateErrorStatus maps a rejected migration to its HTTP status. Anything
// the caller can fix is a 400; only the busy slot is a conflict.
func migrateErrorStatus(err error) int {
	var unknownErr *migration.UnknownRepoError
	var visErr *migration.InvalidVisibilityError
	var credErr *github.CredentialsError
	var orgErr *github.OrgNotFoundError

	switch {
	case errors.Is(err, application.ErrMigrationInProgress):
		return http.StatusConflict
	case errors.Is(err, application.ErrNotConfigured),
		errors.Is(err, application.ErrGitHubNotConfigured),
		errors.Is(err, application.ErrNoReport),
		errors.Is(err, migration.ErrNoRepositories),
		errors.Is(err, migration.ErrNoTargetOrg),
		errors.As(err, &unknownErr),
		errors.As(err, &visErr),
		errors.As(err, &credErr),
		errors.As(err, &orgErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
