package watch

import (
	"path/filepath"

	"github.com/felixgeelhaar/shiplift/pkg/storage"
)

// watchedArtifacts are the workspace files a change notification covers.
// Temp files from atomic writes and editor droppings fall outside this set.
var watchedArtifacts = map[string]struct{}{
	storage.ConfigFile:  {},
	storage.ReportFile:  {},
	storage.JournalFile: {},
}

// ArtifactName maps a filesystem path to the workspace artifact it belongs
// to, or false when the path is not a watched artifact.
func ArtifactName(path string) (string, bool) {
	base := filepath.Base(path)
	if _, ok := watchedArtifacts[base]; !ok {
		return "", false
	}
	return base, true
}
