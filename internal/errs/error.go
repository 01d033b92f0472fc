package errs

import (
	"errors"
)

var (
	// ErrNotFound covers both a wrong id and a wrong tenant, reported
	// identically so existence never leaks across admins.
	ErrNotFound = errors.New("not found")

	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrDuplicateEmail      = errors.New("email is already registered")
	ErrBookUnavailable     = errors.New("book is not available")
	ErrBorrowLimitExceeded = errors.New("member has exceeded the borrowing limit")
	ErrInvalidState        = errors.New("borrowed book is already returned")
	ErrFineDue             = errors.New("borrowed book is overdue, settle the fine instead")
	ErrOutstandingLoans    = errors.New("record has unreturned borrowed books")
)
