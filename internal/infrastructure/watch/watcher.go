package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent is one coalesced workspace change.
type ChangeEvent struct {
	// Artifact is the workspace file that changed (config.yaml, report.json,
	// journal.jsonl).
	Artifact string
	// ChangeType is "create", "write", "remove", or "rename".
	ChangeType string
	// Coalesced counts how many raw filesystem events collapsed into this
	// one notification.
	Coalesced int
}

// WorkspaceWatcher watches the shiplift workspace directory and notifies on
// changes to its artifacts. The workspace is flat, so no recursion is needed;
// atomic writes (temp file + rename) surface as a single debounced event.
type WorkspaceWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(ChangeEvent)
}

// NewWorkspaceWatcher creates a watcher over the given workspace directory.
func NewWorkspaceWatcher(dir string, debounce time.Duration, onChange func(ChangeEvent)) (*WorkspaceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	return &WorkspaceWatcher{
		dir:      dir,
		watcher:  w,
		debounce: debounce,
		onChange: onChange,
	}, nil
}

// Run starts the event loop. It blocks until the context is cancelled or the
// underlying watcher fails.
func (w *WorkspaceWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var last ChangeEvent
	debouncer := NewDebouncer(w.debounce, func(coalesced int) {
		if w.onChange != nil {
			last.Coalesced = coalesced
			w.onChange(last)
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			artifact, ok := ArtifactName(event.Name)
			if !ok {
				continue
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" {
				continue
			}

			last = ChangeEvent{Artifact: artifact, ChangeType: changeType}
			debouncer.Trigger()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}
