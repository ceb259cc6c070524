package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/schema"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (c *Catalog) get(ctx context.Context, q querier, fileID, systemID string) (*Entry, error) {
	e, err := c.scanEntry(q.QueryRowContext(ctx, c.getSQL, fileID, systemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, fileID, systemID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrStatement, fileID, err)
	}
	return e, nil
}

func (c *Catalog) entries(ctx context.Context, q querier, systemID string) ([]*Entry, error) {
	rows, err := q.QueryContext(ctx, c.entriesSQL, systemID)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStatement, systemID, err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := c.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrStatement, systemID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStatement, systemID, err)
	}
	return out, nil
}

func (c *Catalog) scanEntry(row rowScanner) (*Entry, error) {
	fields := c.def.FieldColumns()

	var (
		e      Entry
		tag    int64
		exists sql.NullBool
		values = make([]sql.NullString, len(fields))
	)
	dest := make([]any, 0, 4+len(fields))
	dest = append(dest, &e.FileID, &e.SystemID, &tag, &exists)
	for i := range values {
		dest = append(dest, &values[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	kind, err := api.ParseKindTag(tag)
	if err != nil {
		return nil, err
	}
	e.Exists = exists.Valid && exists.Bool
	e.Metadata = c.NewMetadata(kind)
	for i, col := range fields {
		if col.AppliesTo(kind) {
			// Column keys and declaration keys are identical by construction.
			_ = e.Metadata.Set(col.Name, values[i].String)
		}
	}
	return &e, nil
}

func (c *Catalog) set(ctx context.Context, q querier, fileID, systemID string, md *Metadata) error {
	if md == nil {
		return fmt.Errorf("%w: set %s: nil metadata", ErrValidation, fileID)
	}
	if _, err := api.ParseKindTag(int64(md.Kind)); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrValidation, fileID, err)
	}

	args := make([]any, 0, len(c.def.Columns))
	args = append(args, fileID, systemID, int64(md.Kind), true)
	for _, col := range c.def.FieldColumns() {
		if col.AppliesTo(md.Kind) {
			args = append(args, bindValue(col, md.Get(col.Name)))
		} else {
			args = append(args, nil)
		}
	}

	if _, err := q.ExecContext(ctx, c.setSQL, args...); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStatement, fileID, err)
	}
	return nil
}

// bindValue returns the argument stored for v in col. Values bound to
// numeric or date columns go in as BLOBs, which column affinity leaves
// alone, so the CAST(... AS TEXT) read returns v byte for byte.
func bindValue(col schema.Column, v string) any {
	if v == "" || col.SQLType == "TEXT" {
		return v
	}
	return []byte(v)
}
