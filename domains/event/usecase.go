package event

import "context"

type IEventUsecase interface {
	// Ingest applies one live provider event. Per-message failures inside
	// a batch are logged and counted, never returned; the error covers
	// event-level problems only (unknown instance, storage unavailable).
	Ingest(ctx context.Context, instanceID string, evt Event) error
}
