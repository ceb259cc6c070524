package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/gamelist/api"
	"github.com/agentic-research/gamelist/internal/catalog"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/roms/nes"

var nes = api.System{ID: "nes", Root: root, Extensions: []string{".rom"}}

func fixture(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll(root+"/sub/empty", 0o755))
	require.NoError(t, util.WriteFile(fs, root+"/a.rom", []byte("a"), 0o644))
	require.NoError(t, util.WriteFile(fs, root+"/sub/b.rom", []byte("b"), 0o644))
	require.NoError(t, util.WriteFile(fs, root+"/sub/empty/readme.txt", []byte("x"), 0o644))
	return fs
}

func openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(t.Context(), filepath.Join(t.TempDir(), "gamelist.db"), api.DefaultDeclarations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func rows(t *testing.T, c *catalog.Catalog, systemID string) []string {
	t.Helper()
	entries, err := c.Entries(t.Context(), systemID)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Kind().String()+" "+e.FileID)
	}
	return out
}

func TestScan_Fixture(t *testing.T) {
	c := openCatalog(t)
	s, err := New(c, WithFilesystem(fixture(t)))
	require.NoError(t, err)

	res, err := s.Scan(t.Context(), nes)
	require.NoError(t, err)
	assert.Equal(t, &Result{Games: 2, Folders: 1, Inserted: 3}, res)

	assert.Equal(t, []string{
		"game ./a.rom",
		"game ./sub/b.rom",
		"folder ./sub",
	}, rows(t, c, "nes"))
}

func TestScan_NestedFolders(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, root+"/x/y/z/deep.rom", nil, 0o644))
	require.NoError(t, util.WriteFile(fs, root+"/x/other.bin", nil, 0o644))

	c := openCatalog(t)
	s, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	_, err = s.Scan(t.Context(), nes)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"game ./x/y/z/deep.rom",
		"folder ./x",
		"folder ./x/y",
		"folder ./x/y/z",
	}, rows(t, c, "nes"))
}

func TestScan_ExtensionMatchIsExact(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, root+"/upper.ROM", nil, 0o644))
	require.NoError(t, util.WriteFile(fs, root+"/double.rom.bak", nil, 0o644))
	require.NoError(t, util.WriteFile(fs, root+"/rom", nil, 0o644))

	c := openCatalog(t)
	s, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	res, err := s.Scan(t.Context(), nes)
	require.NoError(t, err)
	assert.Zero(t, res.Games)
	assert.Empty(t, rows(t, c, "nes"))
}

func TestScan_KeepsExistingMetadata(t *testing.T) {
	ctx := t.Context()
	c := openCatalog(t)

	md := c.NewMetadata(api.KindGame)
	require.NoError(t, md.Set("name", "Alpha"))
	require.NoError(t, c.Set(ctx, "./a.rom", "nes", md))

	s, err := New(c, WithFilesystem(fixture(t)))
	require.NoError(t, err)

	res, err := s.Scan(ctx, nes)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	got, err := c.Get(ctx, "./a.rom", "nes")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Metadata.Get("name"))

	// A second scan finds nothing new.
	res, err = s.Scan(ctx, nes)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
}

func TestScan_ScopedToSystem(t *testing.T) {
	c := openCatalog(t)
	s, err := New(c, WithFilesystem(fixture(t)))
	require.NoError(t, err)

	_, err = s.Scan(t.Context(), nes)
	require.NoError(t, err)
	assert.Empty(t, rows(t, c, "snes"))
}

// failingFS fails ReadDir on one directory.
type failingFS struct {
	billy.Filesystem
	dir string
}

func (f failingFS) ReadDir(path string) ([]os.FileInfo, error) {
	if path == f.dir {
		return nil, errors.New("input/output error")
	}
	return f.Filesystem.ReadDir(path)
}

func TestScan_ReadErrorRollsBack(t *testing.T) {
	c := openCatalog(t)
	fs := failingFS{Filesystem: fixture(t), dir: root + "/sub/empty"}
	s, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	_, err = s.Scan(t.Context(), nes)
	require.ErrorIs(t, err, catalog.ErrFileSystem)
	assert.Empty(t, rows(t, c, "nes"), "a failed scan commits nothing")
}

func TestScan_MissingRoot(t *testing.T) {
	c := openCatalog(t)
	s, err := New(c, WithFilesystem(memfs.New()))
	require.NoError(t, err)

	_, err = s.Scan(t.Context(), nes)
	assert.ErrorIs(t, err, catalog.ErrFileSystem)
}

func TestScan_Canceled(t *testing.T) {
	c := openCatalog(t)
	s, err := New(c, WithFilesystem(fixture(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = s.Scan(ctx, nes)
	require.Error(t, err)
	assert.Empty(t, rows(t, c, "nes"))
}

func TestScan_HostFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.rom"), nil, 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "sub"), filepath.Join(dir, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "sub", "b.rom"), filepath.Join(dir, "link.rom")))

	c := openCatalog(t)
	s, err := New(c)
	require.NoError(t, err)

	_, err = s.Scan(t.Context(), api.System{ID: "nes", Root: dir, Extensions: []string{".rom"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"game ./link.rom",
		"game ./sub/b.rom",
		"folder ./sub",
	}, rows(t, c, "nes"))
}
