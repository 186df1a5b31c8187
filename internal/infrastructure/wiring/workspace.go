package wiring

import (
	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/storage"
)

// Workspace bundles the storage layer shared by every surface.
type Workspace struct {
	Repo    *storage.FilesystemRepository
	Journal *application.JournalService
}

func NewWorkspace(dir string) *Workspace {
	repo := storage.NewFilesystemRepository(dir)
	return &Workspace{
		Repo:    repo,
		Journal: application.NewJournalService(repo),
	}
}
