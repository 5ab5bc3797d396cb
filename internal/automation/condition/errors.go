package condition

import "errors"

var (
	// ErrUnknownMatch is returned for a keyword match mode that is not one
	// of contains, equals, starts_with, ends_with or regex.
	ErrUnknownMatch = errors.New("condition: unknown match mode")

	// ErrInvalidPattern is returned when a keyword regex does not compile.
	ErrInvalidPattern = errors.New("condition: invalid pattern")

	// ErrInvalidExpression is returned when an expression does not compile
	// to a boolean program.
	ErrInvalidExpression = errors.New("condition: invalid expression")

	// ErrInvalidWindow is returned for a malformed time_window.
	ErrInvalidWindow = errors.New("condition: invalid time window")
)
