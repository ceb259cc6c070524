// Package scan discovers game files under a system root and records them,
// together with the folders that contain them, in the catalog.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/catalog"
	"github.com/agentic-research/gamelist/internal/log"
	"github.com/agentic-research/gamelist/internal/pathid"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Result summarizes one scan.
type Result struct {
	Games    int
	Folders  int
	Inserted int
}

// Scanner walks system roots and inserts the rows it finds.
type Scanner struct {
	cat    *catalog.Catalog
	fs     billy.Filesystem
	logger *log.Logger
}

type Options struct {
	Filesystem billy.Filesystem
	Logger     *log.Logger
}

type Option func(*Options) error

// WithFilesystem replaces the host filesystem. Paths handed to it are absolute.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(opts *Options) error {
		if fs == nil {
			return fmt.Errorf("scan: nil filesystem")
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

func New(cat *catalog.Catalog, opts ...Option) (*Scanner, error) {
	options := &Options{
		Filesystem: osfs.New("/"),
		Logger:     log.Discard(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return &Scanner{
		cat:    cat,
		fs:     options.Filesystem,
		logger: options.Logger.Named("scan"),
	}, nil
}

// Scan walks sys.Root depth-first and inserts a game row for every file
// carrying one of sys.Extensions, and a folder row for every subdirectory
// holding at least one game somewhere beneath it. The root itself gets no
// row. Existing rows are left untouched. The whole scan is one transaction:
// any read error discards every insert.
func (s *Scanner) Scan(ctx context.Context, sys api.System) (*Result, error) {
	root := pathid.Resolve(sys.Root, "")
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", catalog.ErrFileSystem, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: scan %s: not a directory", catalog.ErrFileSystem, root)
	}

	res := &Result{}
	err = s.cat.Update(ctx, func(tx *catalog.Tx) error {
		w := &walker{s: s, tx: tx, sys: sys, root: root, res: res}
		_, err := w.walk(ctx, root)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scanned %s: %d games, %d folders, %d new", sys.ID, res.Games, res.Folders, res.Inserted)
	return res, nil
}

type walker struct {
	s    *Scanner
	tx   *catalog.Tx
	sys  api.System
	root string
	res  *Result
}

// walk visits dir and reports whether any game was found beneath it.
// Children are processed before dir's own folder row is considered.
func (w *walker) walk(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	infos, err := w.s.fs.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", catalog.ErrFileSystem, dir, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	found := false
	for _, info := range infos {
		path := filepath.Join(dir, info.Name())

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := w.s.fs.Stat(path)
			if err != nil {
				return false, fmt.Errorf("%w: stat %s: %w", catalog.ErrFileSystem, path, err)
			}
			if target.IsDir() {
				w.s.logger.Debug("not following directory link %s", path)
				continue
			}
			info = target
		}

		if info.IsDir() {
			sub, err := w.walk(ctx, path)
			if err != nil {
				return false, err
			}
			if sub {
				if err := w.emit(ctx, path, api.KindFolder); err != nil {
					return false, err
				}
				w.res.Folders++
				found = true
			}
			continue
		}

		if !info.Mode().IsRegular() || !w.sys.IsGameFile(info.Name()) {
			continue
		}
		if err := w.emit(ctx, path, api.KindGame); err != nil {
			return false, err
		}
		w.res.Games++
		found = true
	}
	return found, nil
}

func (w *walker) emit(ctx context.Context, path string, kind api.Kind) error {
	fileID := pathid.ToFileID(path, w.root)
	inserted, err := w.tx.InsertIfAbsent(ctx, fileID, w.sys.ID, kind)
	if err != nil {
		return err
	}
	if inserted {
		w.res.Inserted++
		w.s.logger.Debug("new %s %s", kind, fileID)
	}
	return nil
}
