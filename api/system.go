package api

import "path/filepath"

// System is one configured game system as seen by the catalog.
type System struct {
	// ID is stored in the systemid column.
	ID string `json:"id"`
	// Root is the directory fileIDs are made relative to.
	Root string `json:"root"`
	// Extensions lists the file extensions (with leading dot) that count as games.
	Extensions []string `json:"extensions"`
}

// IsGameFile reports whether name carries one of the system's extensions.
// Matching is exact, including case.
func (s System) IsGameFile(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	for _, e := range s.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
