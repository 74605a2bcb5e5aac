package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOperationFailed = errors.New("operation failed")

	// Provider interaction errors
	ErrProviderUnavailable      = errors.New("payment provider unavailable")
	ErrCheckoutInitFailed       = errors.New("checkout initialization failed")
	ErrVerificationFailed       = errors.New("transaction verification failed")
	ErrSubscriptionCreateFailed = errors.New("subscription creation failed")
	ErrDuplicateSubscription    = errors.New("subscription already exists for customer and plan")

	// Data resolution errors
	ErrUnauthenticated    = errors.New("caller is not authenticated")
	ErrMissingData        = errors.New("required transaction fields absent")
	ErrInvalidInterval    = errors.New("billing interval not recognized")
	ErrUnknownInterval    = errors.New("unknown billing interval, defaulted to monthly")
	ErrUnresolvedUser     = errors.New("no internal user id resolvable from event")
	ErrUnresolvedInterval = errors.New("no billing interval resolvable from event")

	// Webhook / write-path errors
	ErrBadSignature = errors.New("webhook signature mismatch")
	ErrStaleEvent   = errors.New("event older than last applied event")
)
