package catalog

import "errors"

var (
	ErrModelNotFound    = errors.New("model not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrIDMismatch       = errors.New("body id does not match path id")
)
