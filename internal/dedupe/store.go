package dedupe

import "context"

// Store remembers which bounty keys were already delivered.
type Store interface {
	IsSeen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) error
}
