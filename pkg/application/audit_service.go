package application

import (
	"github.com/felixgeelhaar/shiplift/pkg/domain"
)

// JournalService records operator actions to the hash-chained operations
// journal and answers timeline and integrity queries over it.
type JournalService struct {
	repo domain.AuditRepository
}

// Compile-time check that JournalService implements AuditLogger
var _ domain.AuditLogger = (*JournalService)(nil)

func NewJournalService(repo domain.AuditRepository) *JournalService {
	return &JournalService{repo: repo}
}

// Log appends one action to the journal. The store assigns the event id,
// timestamp, and chain hashes.
func (s *JournalService) Log(action string, actor string, metadata map[string]interface{}) error {
	return s.repo.RecordEvent(domain.Event{
		Action:   action,
		Actor:    actor,
		Metadata: metadata,
	})
}

// Timeline returns all journaled operations in chronological order.
func (s *JournalService) Timeline() ([]domain.Event, error) {
	return s.repo.LoadEvents()
}

// Verify checks the journal's hash chain and returns a description of each
// violation found. An empty result means the chain is intact.
func (s *JournalService) Verify() ([]string, error) {
	return s.repo.VerifyJournal()
}
