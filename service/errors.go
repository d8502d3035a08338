package service

import "errors"

// Run errors. Callers classify failures with errors.Is.
var (
	// ErrConfiguration is returned for missing or invalid settings. No
	// network call has been made when it is returned.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstream is returned when the repository listing cannot be read.
	// Nothing is written in that case.
	ErrUpstream = errors.New("upstream error")
	// ErrPersistence is returned when one or more records could not be
	// written. Records written before and after the failure stay written.
	ErrPersistence = errors.New("persistence error")
	// ErrServiceShutdown is returned when releasing resources fails.
	ErrServiceShutdown = errors.New("service shutdown error")
)
