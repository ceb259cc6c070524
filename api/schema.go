package api

import (
	"fmt"
	"strings"
)

// FieldType is the semantic type of a metadata field.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeMultiline FieldType = "multiline"
	TypeImagePath FieldType = "image_path"
	TypeInt       FieldType = "int"
	TypeFloat     FieldType = "float"
	TypeRating    FieldType = "rating"
	TypeDate      FieldType = "date"
	TypeDatetime  FieldType = "datetime"
)

// ParseFieldType maps a config string onto a FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch t := FieldType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeText, TypeMultiline, TypeImagePath, TypeInt, TypeFloat, TypeRating, TypeDate, TypeDatetime:
		return t, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// Kind is the record kind of a catalog row. The numeric value is the tag
// persisted in the filetype column.
type Kind int

const (
	KindGame   Kind = 1
	KindFolder Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindGame:
		return "game"
	case KindFolder:
		return "folder"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKindTag validates a stored filetype tag.
func ParseKindTag(tag int64) (Kind, error) {
	switch k := Kind(tag); k {
	case KindGame, KindFolder:
		return k, nil
	default:
		return 0, fmt.Errorf("unknown filetype tag %d", tag)
	}
}

// FieldDecl declares one metadata field.
type FieldDecl struct {
	// Key is the field name, used as column name and as gamelist element name.
	Key string `json:"key"`
	// Type selects the column type and import handling.
	Type FieldType `json:"type"`
	// Default is the literal column default, nil when the field has none.
	Default *string `json:"default,omitempty"`
}

// Declarations holds the ordered field lists of both record kinds.
type Declarations struct {
	Game   []FieldDecl `json:"game"`
	Folder []FieldDecl `json:"folder"`
}

// For returns the declarations of one kind.
func (d Declarations) For(kind Kind) []FieldDecl {
	if kind == KindFolder {
		return d.Folder
	}
	return d.Game
}

// Lookup finds the declaration of key for kind.
func (d Declarations) Lookup(kind Kind, key string) (FieldDecl, bool) {
	for _, decl := range d.For(kind) {
		if decl.Key == key {
			return decl, true
		}
	}
	return FieldDecl{}, false
}

func def(v string) *string { return &v }

// DefaultDeclarations returns the built-in game and folder metadata fields.
func DefaultDeclarations() Declarations {
	return Declarations{
		Game: []FieldDecl{
			{Key: "name", Type: TypeText},
			{Key: "desc", Type: TypeMultiline},
			{Key: "image", Type: TypeImagePath},
			{Key: "thumbnail", Type: TypeImagePath},
			{Key: "rating", Type: TypeRating, Default: def("0.000000")},
			{Key: "releasedate", Type: TypeDate},
			{Key: "developer", Type: TypeText, Default: def("unknown")},
			{Key: "publisher", Type: TypeText, Default: def("unknown")},
			{Key: "genre", Type: TypeText, Default: def("unknown")},
			{Key: "players", Type: TypeInt, Default: def("1")},
			{Key: "playcount", Type: TypeInt, Default: def("0")},
			{Key: "lastplayed", Type: TypeDatetime},
		},
		Folder: []FieldDecl{
			{Key: "name", Type: TypeText},
			{Key: "desc", Type: TypeMultiline},
			{Key: "image", Type: TypeImagePath},
			{Key: "thumbnail", Type: TypeImagePath},
		},
	}
}
