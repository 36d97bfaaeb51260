package sync

import "context"

// Stats accumulates run-wide counters for one bulk synchronization.
type Stats struct {
	ChatsProcessed  int      `json:"chats_processed"`
	ChatsCreated    int      `json:"chats_created"`
	ContactsCreated int      `json:"contacts_created"`
	MessagesCreated int      `json:"messages_created"`
	MessagesSkipped int      `json:"messages_skipped"`
	Errors          []string `json:"errors,omitempty"`

	errorCap int
	dropped  int
}

// NewStats returns a Stats that keeps at most errorCap error strings.
func NewStats(errorCap int) *Stats {
	return &Stats{errorCap: errorCap}
}

// AddError records one error string, dropping past the cap so a
// pathological run cannot grow memory without bound.
func (s *Stats) AddError(msg string) {
	if s.errorCap > 0 && len(s.Errors) >= s.errorCap {
		s.dropped++
		return
	}
	s.Errors = append(s.Errors, msg)
}

// DroppedErrors reports how many errors fell past the cap.
func (s *Stats) DroppedErrors() int {
	return s.dropped
}

// Progress is the payload fanned out while a sync run advances.
type Progress struct {
	Step     string `json:"step"`
	Percent  int    `json:"progress"`
	Total    int    `json:"total,omitempty"`
	Done     int    `json:"done,omitempty"`
	Counters *Stats `json:"counters,omitempty"`
}

type ISyncUsecase interface {
	// Sync imports every chat and message of the instance from the
	// provider. Partial stats are returned alongside the error when the
	// run aborts.
	Sync(ctx context.Context, instanceID string) (*Stats, error)
}
