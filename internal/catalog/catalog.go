// Package catalog is the SQLite-backed gamelist store: it synthesizes the
// files table from the metadata declarations, and provides keyed get/set of
// rows plus a transaction guard for the multi-step operations built on top.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/log"
	"github.com/agentic-research/gamelist/internal/schema"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Catalog owns the single connection to the store. It is not safe for
// concurrent use.
type Catalog struct {
	db     *sql.DB
	path   string
	decls  api.Declarations
	def    *schema.Definition
	logger *log.Logger

	getSQL     string
	entriesSQL string
	idsSQL     string
	setSQL     string
	existsSQL  string
	insertSQL  map[api.Kind]string
	insertArgs map[api.Kind][]any
}

type Options struct {
	Logger *log.Logger
}

type Option func(*Options) error

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

// Open opens (creating if needed) the catalog at path. The files table is
// created from decls when absent; an existing table must carry every
// declared column. path may be ":memory:".
func Open(ctx context.Context, path string, decls api.Declarations, opts ...Option) (*Catalog, error) {
	options := &Options{Logger: log.Discard()}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	def, err := schema.Build(decls)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSchema, path, err)
	}
	// One handle, one owner: transactions and :memory: databases rely on it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: open %s: %w", ErrSchema, path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrSchema, pragma, err)
		}
	}

	c := &Catalog{
		db:     db,
		path:   path,
		decls:  decls,
		def:    def,
		logger: options.Logger,
	}

	if err := c.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	c.prepareSQL()

	c.logger.Debug("opened catalog %s (%d field columns)", path, len(def.FieldColumns()))
	return c, nil
}

func (c *Catalog) createTable(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, c.def.CreateSQL()); err != nil {
		return fmt.Errorf("%w: create table %s: %w", ErrSchema, c.def.Table, err)
	}

	rows, err := c.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", c.def.Table)
	if err != nil {
		return fmt.Errorf("%w: inspect table %s: %w", ErrSchema, c.def.Table, err)
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("%w: inspect table %s: %w", ErrSchema, c.def.Table, err)
		}
		existing = append(existing, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: inspect table %s: %w", ErrSchema, c.def.Table, err)
	}

	if err := c.def.Verify(existing); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

// prepareSQL renders the statements used by get/set and the transactional
// helpers. Field values are read back as TEXT so that DATE/DATETIME columns
// are never reinterpreted by the driver.
func (c *Catalog) prepareSQL() {
	table := c.def.Table
	fields := c.def.FieldColumns()

	sel := []string{schema.ColFileID, schema.ColSystemID, schema.ColFileType, schema.ColFileExists}
	for _, col := range fields {
		q := schema.Quote(col.Name)
		sel = append(sel, fmt.Sprintf("CAST(%s AS TEXT)", q))
	}
	selectList := strings.Join(sel, ", ")

	c.getSQL = fmt.Sprintf("SELECT %s FROM %s WHERE fileid = ? AND systemid = ?", selectList, table)
	c.entriesSQL = fmt.Sprintf("SELECT %s FROM %s WHERE systemid = ? ORDER BY filetype, fileid", selectList, table)
	c.idsSQL = fmt.Sprintf("SELECT fileid FROM %s WHERE systemid = ? ORDER BY fileid", table)
	c.existsSQL = fmt.Sprintf("UPDATE %s SET fileexists = ? WHERE fileid = ? AND systemid = ?", table)

	all := make([]string, 0, len(c.def.Columns))
	for _, col := range c.def.Columns {
		all = append(all, schema.Quote(col.Name))
	}
	c.setSQL = fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(all, ", "), placeholders(len(all)))

	// Insert-if-absent writes the fixed columns plus the declared defaults,
	// bound like Set values so they read back exactly as declared. Fields
	// without a default stay NULL, as do the other kind's columns.
	c.insertSQL = make(map[api.Kind]string, 2)
	c.insertArgs = make(map[api.Kind][]any, 2)
	for _, kind := range []api.Kind{api.KindGame, api.KindFolder} {
		cols := []string{schema.ColFileID, schema.ColSystemID, schema.ColFileType, schema.ColFileExists}
		vals := []string{"?", "?", "?", "1"}
		var args []any
		for _, col := range fields {
			switch {
			case !col.AppliesTo(kind):
				cols = append(cols, schema.Quote(col.Name))
				vals = append(vals, "NULL")
			case col.Default != nil:
				cols = append(cols, schema.Quote(col.Name))
				vals = append(vals, "?")
				args = append(args, bindValue(col, *col.Default))
			}
		}
		c.insertArgs[kind] = args
		c.insertSQL[kind] = fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.Join(vals, ", "))
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// conn returns the open handle, or an error once the catalog is closed.
func (c *Catalog) conn() (*sql.DB, error) {
	if c.db == nil {
		return nil, fmt.Errorf("%w: catalog closed", ErrStatement)
	}
	return c.db, nil
}

// Close closes the underlying connection. Later calls fail with ErrStatement.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Path returns the database path the catalog was opened with.
func (c *Catalog) Path() string { return c.path }

// Declarations returns the field declarations the catalog was opened with.
func (c *Catalog) Declarations() api.Declarations { return c.decls }

// Definition returns the synthesized table definition.
func (c *Catalog) Definition() *schema.Definition { return c.def }

// NewMetadata returns empty metadata of kind under the catalog's declarations.
func (c *Catalog) NewMetadata(kind api.Kind) *Metadata {
	return NewMetadata(c.decls, kind)
}

// Get returns the row stored at (fileID, systemID), or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, fileID, systemID string) (*Entry, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	return c.get(ctx, db, fileID, systemID)
}

// Set replaces the row at (fileID, systemID) with md. The existence flag is
// reset to true.
func (c *Catalog) Set(ctx context.Context, fileID, systemID string, md *Metadata) error {
	db, err := c.conn()
	if err != nil {
		return err
	}
	return c.set(ctx, db, fileID, systemID, md)
}

// Entries returns every row of systemID, games first, each group ordered by fileID.
func (c *Catalog) Entries(ctx context.Context, systemID string) ([]*Entry, error) {
	db, err := c.conn()
	if err != nil {
		return nil, err
	}
	return c.entries(ctx, db, systemID)
}
