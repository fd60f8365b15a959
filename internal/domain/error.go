package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrUserNotResolved    = errors.New("no user could be resolved for candidate")
	ErrGatewayMissing     = errors.New("gateway does not know this transaction")
	ErrGatewayUnavailable = errors.New("gateway temporarily unavailable")
	ErrLockHeld           = errors.New("reconciliation lock already held")
)
