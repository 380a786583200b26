package domain

import "context"

// Notifier delivers one formatted message to a destination chat. A delivery
// error means "delivery not confirmed"; callers log it and move on, and the
// dedup state for the subscription stays advanced. Duplicate suppression is
// prioritized over guaranteed delivery.
type Notifier interface {
	Notify(ctx context.Context, destinationID, text string) error
}
