package interfaces

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrConflict          = errors.New("record changed concurrently or precondition failed")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)
