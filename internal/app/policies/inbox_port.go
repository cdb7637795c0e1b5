package policies

import "context"

// Inbox deduplicates consumed events. Seen records eventID and reports
// whether it had been recorded before; Forget undoes a record whose
// processing failed.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}
