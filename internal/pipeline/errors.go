package pipeline

import "fmt"

// CapacityError is returned when the inputs of a session hold more pages
// than allowed.
type CapacityError struct {
	Pages int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("too many pages: %d > %d", e.Pages, e.Limit)
}

// PageError wraps the failure of one page.
type PageError struct {
	Index  int
	Source string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Index, e.Source, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
