package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/google/uuid"
)

// RecordEvent appends an operation to the journal, chained to the previous
// entry by hash.
func (r *FilesystemRepository) RecordEvent(event domain.Event) error {
	r.journalMu.Lock()
	defer r.journalMu.Unlock()

	if err := r.Initialize(); err != nil {
		return err
	}

	path, err := r.ResolvePath(JournalFile)
	if err != nil {
		return err
	}

	if !r.lastHashKnown {
		events, err := r.loadEvents(path)
		if err != nil {
			return err
		}
		if len(events) > 0 {
			r.lastHash = events[len(events)-1].Hash
		}
		r.lastHashKnown = true
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.PrevHash = r.lastHash
	event.Hash = event.CalculateHash()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	r.lastHash = event.Hash
	return nil
}

// LoadEvents returns all journaled operations in chronological order.
func (r *FilesystemRepository) LoadEvents() ([]domain.Event, error) {
	path, err := r.ResolvePath(JournalFile)
	if err != nil {
		return nil, err
	}
	return r.loadEvents(path)
}

// VerifyJournal checks the hash chain for tampering and returns a description
// of each violation found.
func (r *FilesystemRepository) VerifyJournal() ([]string, error) {
	events, err := r.LoadEvents()
	if err != nil {
		return nil, err
	}

	var violations []string
	lastHash := ""

	for i, e := range events {
		if e.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("Event %d (%s): PrevHash mismatch", i, e.ID))
		}
		if expected := e.CalculateHash(); e.Hash != expected {
			violations = append(violations, fmt.Sprintf("Event %d (%s): Hash mismatch - possible tampering", i, e.ID))
		}
		lastHash = e.Hash
	}

	return violations, nil
}

func (r *FilesystemRepository) loadEvents(path string) ([]domain.Event, error) {
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Event{}, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var events []domain.Event
	lines := bytes.Split(data, []byte("\n"))
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e domain.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, e)
	}

	return events, nil
}
