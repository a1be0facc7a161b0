package leads

import "errors"

var (
	// ErrPersistence wraps every failure to durably store a lead.
	ErrPersistence = errors.New("leads: persistence failed")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
