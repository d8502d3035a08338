package db

import "fmt"

// Common errors
var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrDatabaseConnection = fmt.Errorf("database connection error")
	ErrUnknownBackend     = fmt.Errorf("unknown store backend")
	ErrMalformedItem      = fmt.Errorf("malformed store item")
)
