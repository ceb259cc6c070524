package gamelist

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/catalog"
	"github.com/agentic-research/gamelist/internal/log"
	"github.com/agentic-research/gamelist/internal/pathid"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Bridge imports gamelist documents into a catalog and exports them back.
type Bridge struct {
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
			return fmt.Errorf("gamelist: nil filesystem")
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

func New(cat *catalog.Catalog, opts ...Option) (*Bridge, error) {
	options := &Options{
		Filesystem: osfs.New("/"),
		Logger:     log.Discard(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return &Bridge{
		cat:    cat,
		fs:     options.Filesystem,
		logger: options.Logger.Named("gamelist"),
	}, nil
}

type pendingRow struct {
	fileID string
	md     *catalog.Metadata
}

// Import stores every element of doc whose path exists under sys, replacing
// rows already present at the same key. Elements pointing at missing files
// are skipped and counted. An element without a name fails the whole import
// and nothing is written.
func (b *Bridge) Import(ctx context.Context, doc *Document, sys api.System) (int, error) {
	root := pathid.Resolve(sys.Root, "")

	var (
		rows    []pendingRow
		skipped int
	)
	add := func(kind api.Kind, entries []Entry) error {
		for _, e := range entries {
			row, ok, err := b.buildRow(kind, e, root)
			if err != nil {
				return err
			}
			if !ok {
				skipped++
				continue
			}
			rows = append(rows, row)
		}
		return nil
	}
	if err := add(api.KindGame, doc.Games); err != nil {
		return 0, err
	}
	if err := add(api.KindFolder, doc.Folders); err != nil {
		return 0, err
	}

	err := b.cat.Update(ctx, func(tx *catalog.Tx) error {
		for _, row := range rows {
			if err := tx.Set(ctx, row.fileID, sys.ID, row.md); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	b.logger.Info("imported %d entries into %s, skipped %d", len(rows), sys.ID, skipped)
	return skipped, nil
}

// buildRow converts one element. It reports false when the element's file
// does not exist.
func (b *Bridge) buildRow(kind api.Kind, e Entry, root string) (pendingRow, bool, error) {
	if e.Path == "" {
		return pendingRow{}, false, &ValidationError{Path: e.Path, Field: "path", Message: "missing path"}
	}
	path := pathid.Resolve(e.Path, root)

	if _, err := b.fs.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("file %s does not exist, ignoring", path)
			return pendingRow{}, false, nil
		}
		return pendingRow{}, false, fmt.Errorf("%w: stat %s: %w", catalog.ErrFileSystem, path, err)
	}

	md := b.cat.NewMetadata(kind)
	for _, decl := range md.Fields() {
		v, ok := e.Get(decl.Key)
		if !ok {
			continue
		}
		if decl.Type == api.TypeImagePath && v != "" {
			v = pathid.ToFileID(pathid.ExpandHome(v), root)
		}
		if err := md.Set(decl.Key, v); err != nil {
			return pendingRow{}, false, err
		}
	}

	if md.Has("name") && md.Get("name") == "" {
		return pendingRow{}, false, &ValidationError{Path: e.Path, Field: "name", Message: "name is required"}
	}
	return pendingRow{fileID: pathid.ToFileID(path, root), md: md}, true, nil
}

// ImportFile decodes the gamelist at path and imports it.
func (b *Bridge) ImportFile(ctx context.Context, path string, sys api.System) (int, error) {
	f, err := b.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", catalog.ErrFileSystem, path, err)
	}
	defer f.Close()

	b.logger.Info("importing %s into %s", path, sys.ID)
	doc, err := Decode(f)
	if err != nil {
		return 0, err
	}
	return b.Import(ctx, doc, sys)
}

// Export renders every row of sys. Paths are written out absolute; each
// element carries one child per declared field of its kind.
func (b *Bridge) Export(ctx context.Context, sys api.System) (*Document, error) {
	entries, err := b.cat.Entries(ctx, sys.ID)
	if err != nil {
		return nil, err
	}

	root := pathid.Resolve(sys.Root, "")
	doc := &Document{}
	for _, e := range entries {
		out := Entry{Path: filepath.ToSlash(pathid.ToPath(e.FileID, root))}
		for _, decl := range e.Metadata.Fields() {
			out.Fields = append(out.Fields, Field{
				XMLName: xml.Name{Local: decl.Key},
				Value:   e.Metadata.Get(decl.Key),
			})
		}
		if e.Kind() == api.KindFolder {
			doc.Folders = append(doc.Folders, out)
		} else {
			doc.Games = append(doc.Games, out)
		}
	}

	b.logger.Debug("exported %d games and %d folders from %s", len(doc.Games), len(doc.Folders), sys.ID)
	return doc, nil
}
