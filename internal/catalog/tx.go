package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentic-research/gamelist/api"
)

// Tx is a catalog transaction handed to the Update callback. It must not be
// retained after the callback returns.
type Tx struct {
	c  *Catalog
	tx *sql.Tx

	stmtInsert map[api.Kind]*sql.Stmt
	stmtExists *sql.Stmt
}

// Update runs fn inside one transaction. The transaction commits exactly once
// when fn returns nil and is rolled back when fn fails or panics, leaving the
// store as it was.
func (c *Catalog) Update(ctx context.Context, fn func(tx *Tx) error) (err error) {
	db, err := c.conn()
	if err != nil {
		return err
	}
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStatement, err)
	}

	tx := &Tx{c: c, tx: sqlTx, stmtInsert: make(map[api.Kind]*sql.Stmt, 2)}
	committed := false
	defer func() {
		tx.closeStmts()
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	tx.closeStmts()
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStatement, err)
	}
	committed = true
	return nil
}

func (tx *Tx) closeStmts() {
	for kind, stmt := range tx.stmtInsert {
		_ = stmt.Close()
		delete(tx.stmtInsert, kind)
	}
	if tx.stmtExists != nil {
		_ = tx.stmtExists.Close()
		tx.stmtExists = nil
	}
}

// Get reads a row inside the transaction.
func (tx *Tx) Get(ctx context.Context, fileID, systemID string) (*Entry, error) {
	return tx.c.get(ctx, tx.tx, fileID, systemID)
}

// Set replaces a row inside the transaction.
func (tx *Tx) Set(ctx context.Context, fileID, systemID string, md *Metadata) error {
	return tx.c.set(ctx, tx.tx, fileID, systemID, md)
}

// Entries lists a system's rows inside the transaction.
func (tx *Tx) Entries(ctx context.Context, systemID string) ([]*Entry, error) {
	return tx.c.entries(ctx, tx.tx, systemID)
}

// InsertIfAbsent adds a row of kind at (fileID, systemID) unless one exists.
// Existing rows, including their metadata, are left untouched. It reports
// whether a row was added.
func (tx *Tx) InsertIfAbsent(ctx context.Context, fileID, systemID string, kind api.Kind) (bool, error) {
	stmt, ok := tx.stmtInsert[kind]
	if !ok {
		query, known := tx.c.insertSQL[kind]
		if !known {
			return false, fmt.Errorf("%w: insert %s: unknown kind %s", ErrValidation, fileID, kind)
		}
		var err error
		stmt, err = tx.tx.PrepareContext(ctx, query)
		if err != nil {
			return false, fmt.Errorf("%w: prepare insert: %w", ErrStatement, err)
		}
		tx.stmtInsert[kind] = stmt
	}

	args := append([]any{fileID, systemID, int64(kind)}, tx.c.insertArgs[kind]...)
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return false, fmt.Errorf("%w: insert %s: %w", ErrStatement, fileID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: insert %s: %w", ErrStatement, fileID, err)
	}
	return n > 0, nil
}

// SetExists rewrites only the existence flag of a row.
func (tx *Tx) SetExists(ctx context.Context, fileID, systemID string, exists bool) error {
	if tx.stmtExists == nil {
		stmt, err := tx.tx.PrepareContext(ctx, tx.c.existsSQL)
		if err != nil {
			return fmt.Errorf("%w: prepare update: %w", ErrStatement, err)
		}
		tx.stmtExists = stmt
	}

	res, err := tx.stmtExists.ExecContext(ctx, exists, fileID, systemID)
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", ErrStatement, fileID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s in %s", ErrNotFound, fileID, systemID)
	}
	return nil
}

// FileIDs returns every fileID stored for systemID, sorted.
func (tx *Tx) FileIDs(ctx context.Context, systemID string) ([]string, error) {
	rows, err := tx.tx.QueryContext(ctx, tx.c.idsSQL, systemID)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStatement, systemID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrStatement, systemID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStatement, systemID, err)
	}
	return ids, nil
}
