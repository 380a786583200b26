package domain

import "errors"

var (
	// ErrDuplicateSubscription is returned when a (source, destination) pair
	// is subscribed a second time.
	ErrDuplicateSubscription = errors.New("subscription already exists")

	// ErrSubscriptionNotFound is returned when an update targets a pair that
	// is not tracked.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNotFoundUpstream is returned when a subscribe target does not exist
	// on the source platform. Surfaced to the command layer; no state change.
	ErrNotFoundUpstream = errors.New("not found on upstream platform")

	// ErrAuthorizationPending is the device-flow sentinel: the human has not
	// yet approved the device code. Callers retry on the next cycle.
	ErrAuthorizationPending = errors.New("device authorization pending")
)
