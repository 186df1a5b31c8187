package application_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/storage"
)

func TestJournalService_Log(t *testing.T) {
	dir := t.TempDir()
	repo := storage.NewFilesystemRepository(dir)
	service := application.NewJournalService(repo)

	if err := service.Log(domain.ActionScanStart, "cli", map[string]interface{}{"total_projects": 3}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, storage.JournalFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), domain.ActionScanStart) {
		t.Error("event not journaled")
	}

	timeline, err := service.Timeline()
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("timeline length = %d, want 1", len(timeline))
	}
	if timeline[0].ID == "" || timeline[0].Hash == "" {
		t.Error("journaled event missing identity or hash")
	}
}

func TestJournalService_LogError(t *testing.T) {
	repo := &MockRepo{SaveError: errors.New("disk full")}
	service := application.NewJournalService(repo)

	if err := service.Log(domain.ActionScanStart, "cli", nil); err == nil {
		t.Error("expected error on record failure")
	}
}

func TestJournalService_VerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	repo := storage.NewFilesystemRepository(dir)
	service := application.NewJournalService(repo)

	if err := service.Log(domain.ActionScanStart, "cli", nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := service.Log(domain.ActionScanComplete, "cli", nil); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	issues, err := service.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected a clean chain, got %v", issues)
	}

	// Append an entry that was never chained.
	path := filepath.Join(dir, storage.JournalFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"id":"evil","action":"migrate.start","actor":"cli","prev_hash":"bogus","hash":"bogus"}` + "\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	issues, err = service.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(issues) == 0 {
		t.Fatal("expected violations for the forged entry")
	}
}

func TestJournalService_Timeline(t *testing.T) {
	repo := &MockRepo{Events: []domain.Event{
		{ID: "e1", Action: domain.ActionConfigure},
		{ID: "e2", Action: domain.ActionScanStart},
	}}
	service := application.NewJournalService(repo)

	timeline, err := service.Timeline()
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2", len(timeline))
	}
}
