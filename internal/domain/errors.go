package domain

import "errors"

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrValidation       = errors.New("invalid input")
	ErrIneligible       = errors.New("account not eligible")
	ErrBadTransition    = errors.New("illegal status transition")
	ErrProvisioning     = errors.New("provisioning failed")
	ErrNoActiveSession  = errors.New("no active session")
)
