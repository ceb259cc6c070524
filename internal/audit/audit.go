// Package audit reconciles the existence flag of catalog rows with the
// filesystem.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/gamelist/internal/catalog"
	"github.com/agentic-research/gamelist/internal/log"
	"github.com/agentic-research/gamelist/internal/pathid"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Report is the outcome of one reconcile. Missing holds the positions, in
// fileID order, of the rows found absent.
type Report struct {
	SystemID string
	Checked  int
	Missing  *roaring.Bitmap

	ids []string
}

// MissingFileIDs returns the fileIDs whose paths were not found.
func (r *Report) MissingFileIDs() []string {
	out := make([]string, 0, r.Missing.GetCardinality())
	it := r.Missing.Iterator()
	for it.HasNext() {
		out = append(out, r.ids[it.Next()])
	}
	return out
}

type Auditor struct {
	cat    *catalog.Catalog
	fs     billy.Filesystem
	logger *log.Logger
}

type Options struct {
	Filesystem billy.Filesystem
	Logger     *log.Logger
}

type Option func(*Options) error

func WithFilesystem(fs billy.Filesystem) Option {
	return func(opts *Options) error {
		if fs == nil {
			return fmt.Errorf("audit: nil filesystem")
		}
		opts.Filesystem = fs
		return nil
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

func New(cat *catalog.Catalog, opts ...Option) (*Auditor, error) {
	options := &Options{
		Filesystem: osfs.New("/"),
		Logger:     log.Discard(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return &Auditor{
		cat:    cat,
		fs:     options.Filesystem,
		logger: options.Logger.Named("audit"),
	}, nil
}

// Reconcile checks every stored row of systemID against the filesystem and
// records the result in its existence flag. Metadata is not touched and no
// row is removed. Either every flag is updated or, on failure, none is.
func (a *Auditor) Reconcile(ctx context.Context, systemID, root string) (*Report, error) {
	report := &Report{SystemID: systemID, Missing: roaring.New()}

	err := a.cat.Update(ctx, func(tx *catalog.Tx) error {
		ids, err := tx.FileIDs(ctx, systemID)
		if err != nil {
			return err
		}
		report.ids = ids

		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			exists, err := a.exists(pathid.ToPath(id, root))
			if err != nil {
				return err
			}
			if !exists {
				report.Missing.Add(uint32(i))
			}
			if err := tx.SetExists(ctx, id, systemID, exists); err != nil {
				return err
			}
		}
		report.Checked = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("reconciled %s: %d checked, %d missing", systemID, report.Checked, report.Missing.GetCardinality())
	return report, nil
}

func (a *Auditor) exists(path string) (bool, error) {
	_, err := a.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %w", catalog.ErrFileSystem, path, err)
	}
}
