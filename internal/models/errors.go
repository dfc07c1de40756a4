package models

import "errors"

var (
	// ErrValidation marks bad input: non-positive amount, empty participant
	// set, over-long names and similar.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced group, expense, split entry, reminder
	// or user that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotifier marks a notification transport failure. It is never fatal
	// to the reminder scheduler.
	ErrNotifier = errors.New("notifier failed")

	// ErrConsistency marks an internal bug, such as shares that do not add up
	// to the expense amount.
	ErrConsistency = errors.New("consistency violation")
)
