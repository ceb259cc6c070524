// Package pathid maps filesystem paths to the stable fileIDs stored in the
// catalog and back.
//
// A fileID is either "./" followed by the slash-separated path relative to a
// system root ("." for the root itself), or the absolute slash-separated path
// when the file lives outside the root.
package pathid

import (
	"os"
	"path/filepath"
	"strings"
)

const relMarker = "."

// ToFileID converts path into its fileID relative to root.
// A relative path is interpreted against root.
func ToFileID(path, root string) string {
	abs := Resolve(path, root)
	base := absClean(root)

	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	if rel == "." {
		return relMarker
	}
	return relMarker + "/" + filepath.ToSlash(rel)
}

// ToPath converts a fileID back into an absolute path under root.
func ToPath(fileID, root string) string {
	return Resolve(filepath.FromSlash(fileID), root)
}

// IsRelative reports whether fileID is expressed relative to its root.
func IsRelative(fileID string) bool {
	return fileID == relMarker || strings.HasPrefix(fileID, relMarker+"/")
}

// Resolve returns path as an absolute cleaned path, joining relative paths
// onto root.
func Resolve(path, root string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(absClean(root), path)
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
