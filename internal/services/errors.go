package services

import "errors"

var (
	ErrForbidden           = errors.New("forbidden")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrConversationLimit   = errors.New("monthly conversation limit reached")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrBuyerNotFound       = errors.New("buyer not found")
	ErrAlreadyUnlocked     = errors.New("contact already unlocked")
	ErrMalformedSession    = errors.New("checkout session missing unlock metadata")
	ErrUpstream            = errors.New("payment provider unavailable")
)
