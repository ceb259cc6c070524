package catalog

import "errors"

// Error classes reported by the catalog and the components built on it.
// Callers match them with errors.Is; the wrapped cause carries the detail.
var (
	ErrSchema     = errors.New("catalog: schema error")
	ErrStatement  = errors.New("catalog: statement failed")
	ErrFileSystem = errors.New("catalog: filesystem error")
	ErrParse      = errors.New("catalog: parse error")
	ErrValidation = errors.New("catalog: validation failed")
	ErrNotFound   = errors.New("catalog: entry not found")
)
