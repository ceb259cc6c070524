// Package schema synthesizes the catalog table definition from metadata
// field declarations.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentic-research/gamelist/api"
)

// Table is the name of the catalog table.
const Table = "files"

// Fixed column names.
const (
	ColFileID     = "fileid"
	ColSystemID   = "systemid"
	ColFileType   = "filetype"
	ColFileExists = "fileexists"
)

// ErrInvalidDeclaration reports a field declaration that cannot become a column.
var ErrInvalidDeclaration = errors.New("invalid field declaration")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column is one column of the catalog table.
type Column struct {
	Name    string
	SQLType string
	NotNull bool
	// Default is the literal default, nil for none.
	Default *string

	fixed  bool
	game   bool
	folder bool
	decl   api.FieldDecl
}

// Fixed reports whether the column is one of the four key/flag columns.
func (c Column) Fixed() bool { return c.fixed }

// AppliesTo reports whether kind declares this field.
func (c Column) AppliesTo(kind api.Kind) bool {
	if kind == api.KindFolder {
		return c.folder
	}
	return c.game
}

// Decl returns the declaration the column was built from.
func (c Column) Decl() api.FieldDecl { return c.decl }

// Definition is the synthesized table layout.
type Definition struct {
	Table      string
	Columns    []Column
	PrimaryKey []string
}

// Build derives the table definition from decls. Game and folder fields are
// merged into one column set: game keys first in declaration order, then keys
// only folders declare.
func Build(decls api.Declarations) (*Definition, error) {
	d := &Definition{
		Table: Table,
		Columns: []Column{
			{Name: ColFileID, SQLType: "TEXT", NotNull: true, fixed: true},
			{Name: ColSystemID, SQLType: "TEXT", NotNull: true, fixed: true},
			{Name: ColFileType, SQLType: "INTEGER", NotNull: true, fixed: true},
			{Name: ColFileExists, SQLType: "BOOLEAN", fixed: true},
		},
		PrimaryKey: []string{ColFileID, ColSystemID},
	}

	index := make(map[string]int)
	for _, kind := range []api.Kind{api.KindGame, api.KindFolder} {
		seen := make(map[string]bool)
		for _, decl := range decls.For(kind) {
			if err := checkDecl(decl); err != nil {
				return nil, fmt.Errorf("%s field %q: %w", kind, decl.Key, err)
			}
			key := strings.ToLower(decl.Key)
			if seen[key] {
				return nil, fmt.Errorf("%w: %s field %q declared twice", ErrInvalidDeclaration, kind, decl.Key)
			}
			seen[key] = true

			if i, ok := index[key]; ok {
				col := &d.Columns[i]
				if col.Name != decl.Key {
					return nil, fmt.Errorf("%w: field %q is spelled %q for games",
						ErrInvalidDeclaration, decl.Key, col.Name)
				}
				if col.decl.Type != decl.Type {
					return nil, fmt.Errorf("%w: field %q is %s for games but %s for folders",
						ErrInvalidDeclaration, decl.Key, col.decl.Type, decl.Type)
				}
				col.folder = true
				continue
			}

			sqlType, withDefault := columnType(decl.Type)
			col := Column{
				Name:    decl.Key,
				SQLType: sqlType,
				decl:    decl,
				game:    kind == api.KindGame,
				folder:  kind == api.KindFolder,
			}
			if withDefault && decl.Default != nil {
				col.Default = decl.Default
			}
			index[key] = len(d.Columns)
			d.Columns = append(d.Columns, col)
		}
	}

	return d, nil
}

func checkDecl(decl api.FieldDecl) error {
	if !identRe.MatchString(decl.Key) {
		return fmt.Errorf("%w: key is not a valid identifier", ErrInvalidDeclaration)
	}
	switch strings.ToLower(decl.Key) {
	case ColFileID, ColSystemID, ColFileType, ColFileExists, "rowid", "oid", "_rowid_", "path":
		return fmt.Errorf("%w: key collides with a reserved column", ErrInvalidDeclaration)
	}
	if _, err := api.ParseFieldType(string(decl.Type)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDeclaration, err)
	}
	return nil
}

// columnType maps a semantic type to its SQLite column type and whether a
// declared default is carried into the DDL.
func columnType(t api.FieldType) (string, bool) {
	switch t {
	case api.TypeInt:
		return "INTEGER", true
	case api.TypeFloat, api.TypeRating:
		return "REAL", true
	case api.TypeDate:
		return "DATE", false
	case api.TypeDatetime:
		return "DATETIME", false
	default:
		return "TEXT", true
	}
}

// FieldColumns returns the declared-field columns, excluding the fixed ones.
func (d *Definition) FieldColumns() []Column {
	return d.Columns[4:]
}

// CreateSQL renders the idempotent CREATE TABLE statement.
func (d *Definition) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.Table)
	for _, c := range d.Columns {
		fmt.Fprintf(&b, "\t%s %s", Quote(c.Name), c.SQLType)
		if c.NotNull {
			b.WriteString(" NOT NULL")
		}
		if c.Default != nil {
			fmt.Fprintf(&b, " DEFAULT %s", quoteLiteral(*c.Default))
		}
		b.WriteString(",\n")
	}
	quoted := make([]string, len(d.PrimaryKey))
	for i, k := range d.PrimaryKey {
		quoted[i] = Quote(k)
	}
	fmt.Fprintf(&b, "\tPRIMARY KEY (%s)\n)", strings.Join(quoted, ", "))
	return b.String()
}

// Verify checks that an existing table carries every defined column.
// Schema migration is not supported; a missing column is an error.
func (d *Definition) Verify(existing []string) error {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[strings.ToLower(name)] = true
	}
	var missing []string
	for _, c := range d.Columns {
		if !have[strings.ToLower(c.Name)] {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s lacks columns %s", d.Table, strings.Join(missing, ", "))
	}
	return nil
}

// Quote quotes an identifier for use in SQL.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
