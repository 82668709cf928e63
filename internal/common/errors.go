package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// validation and authorization errors
	ErrorValidation = errors.New("validation error")
	ErrorNotOwner   = errors.New("not the child's guardian")

	// vault and letter state errors
	ErrorIllegalState     = errors.New("operation not allowed in current state")
	ErrorNotYetUnlockable = errors.New("unlock date not reached")

	// access grant errors
	ErrorInvalidInvite   = errors.New("invalid or already used invite code")
	ErrorDuplicateInvite = errors.New("pending invite already exists")

	// auth-specific errors
	ErrInvalidToken = errors.New("invalid token")

	// service specific errors
	ErrorInternal = errors.New("internal error")
)
