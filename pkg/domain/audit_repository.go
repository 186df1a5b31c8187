package domain

// AuditRepository handles persistence of journal events.
type AuditRepository interface {
	RecordEvent(event Event) error
	LoadEvents() ([]Event, error)
	VerifyJournal() ([]string, error)
}
