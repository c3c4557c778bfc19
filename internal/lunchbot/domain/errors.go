package domain

import "errors"

var (
	// ErrRecordNotFound indicates that no record exists at the requested key.
	ErrRecordNotFound = errors.New("message record not found")
	// ErrUnknownAction indicates a reply request named an unsupported action.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidDate indicates a date string was not valid YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)
