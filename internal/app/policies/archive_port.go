package policies

import "context"

// ArchiveStore keeps immutable settlement receipts.
type ArchiveStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
}
