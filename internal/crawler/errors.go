package crawler

import (
	"errors"
	"fmt"
)

// Sentinel errors for the crawl engine.
var (
	ErrSessionOpen = errors.New("failed to open portal session")
	ErrBadStatus   = errors.New("page returned a failing status")
)

// ScopeError wraps a failure with enough context (portal, scope, page) for
// an operator to resume a retry.
type ScopeError struct {
	Portal string
	Scope  string
	Page   int
	Err    error
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s: scope %q page %d: %v", e.Portal, e.Scope, e.Page, e.Err)
}

func (e *ScopeError) Unwrap() error {
	return e.Err
}
