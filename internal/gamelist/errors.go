package gamelist

import (
	"fmt"

	"github.com/agentic-research/gamelist/internal/catalog"
)

// ValidationError reports an element of an imported document that cannot be
// stored. It matches catalog.ErrValidation.
type ValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Path, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return catalog.ErrValidation
}
