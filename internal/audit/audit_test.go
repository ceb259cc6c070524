package audit

import (
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

const root = "/roms/snes"

func setup(t *testing.T) (*catalog.Catalog, billy.Filesystem) {
	t.Helper()
	ctx := t.Context()

	c, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "gamelist.db"), api.DefaultDeclarations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	fs := memfs.New()
	for _, p := range []string{"/zelda.smc", "/rpg/ff6.smc"} {
		require.NoError(t, util.WriteFile(fs, root+p, []byte("rom"), 0o644))
	}

	md := c.NewMetadata(api.KindGame)
	require.NoError(t, md.Set("name", "Zelda"))
	require.NoError(t, md.Set("genre", "Adventure"))
	require.NoError(t, c.Set(ctx, "./zelda.smc", "snes", md))

	require.NoError(t, c.Update(ctx, func(tx *catalog.Tx) error {
		if _, err := tx.InsertIfAbsent(ctx, "./rpg/ff6.smc", "snes", api.KindGame); err != nil {
			return err
		}
		_, err := tx.InsertIfAbsent(ctx, "./rpg", "snes", api.KindFolder)
		return err
	}))
	return c, fs
}

func TestReconcile_FlipsAndRestores(t *testing.T) {
	ctx := t.Context()
	c, fs := setup(t)
	a, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	before, err := c.Get(ctx, "./zelda.smc", "snes")
	require.NoError(t, err)

	require.NoError(t, fs.Remove(root+"/zelda.smc"))

	report, err := a.Reconcile(ctx, "snes", root)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, []string{"./zelda.smc"}, report.MissingFileIDs())

	gone, err := c.Get(ctx, "./zelda.smc", "snes")
	require.NoError(t, err)
	assert.False(t, gone.Exists)
	assert.Equal(t, before.Metadata.Map(), gone.Metadata.Map())

	still, err := c.Get(ctx, "./rpg", "snes")
	require.NoError(t, err)
	assert.True(t, still.Exists)

	require.NoError(t, util.WriteFile(fs, root+"/zelda.smc", []byte("rom"), 0o644))
	report, err = a.Reconcile(ctx, "snes", root)
	require.NoError(t, err)
	assert.Empty(t, report.MissingFileIDs())

	back, err := c.Get(ctx, "./zelda.smc", "snes")
	require.NoError(t, err)
	assert.True(t, back.Exists)
	assert.Equal(t, "Adventure", back.Metadata.Get("genre"))
}

func TestReconcile_MissingFolder(t *testing.T) {
	ctx := t.Context()
	c, fs := setup(t)
	a, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	require.NoError(t, util.RemoveAll(fs, root+"/rpg"))

	report, err := a.Reconcile(ctx, "snes", root)
	require.NoError(t, err)
	assert.Equal(t, []string{"./rpg", "./rpg/ff6.smc"}, report.MissingFileIDs())
	assert.EqualValues(t, 2, report.Missing.GetCardinality())
}

func TestReconcile_AbsoluteFileID(t *testing.T) {
	ctx := t.Context()
	c, fs := setup(t)
	require.NoError(t, c.Set(ctx, "/elsewhere/mario.smc", "snes", c.NewMetadata(api.KindGame)))

	a, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	report, err := a.Reconcile(ctx, "snes", root)
	require.NoError(t, err)
	assert.Equal(t, []string{"/elsewhere/mario.smc"}, report.MissingFileIDs())

	require.NoError(t, util.WriteFile(fs, "/elsewhere/mario.smc", nil, 0o644))
	report, err = a.Reconcile(ctx, "snes", root)
	require.NoError(t, err)
	assert.Empty(t, report.MissingFileIDs())
}

func TestReconcile_EmptySystem(t *testing.T) {
	c, fs := setup(t)
	a, err := New(c, WithFilesystem(fs))
	require.NoError(t, err)

	report, err := a.Reconcile(t.Context(), "gba", "/roms/gba")
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.True(t, report.Missing.IsEmpty())
}

// brokenFS fails Stat on one path with an error other than not-exist.
type brokenFS struct {
	billy.Filesystem
	path string
}

func (f brokenFS) Stat(path string) (os.FileInfo, error) {
	if path == f.path {
		return nil, errors.New("permission denied")
	}
	return f.Filesystem.Stat(path)
}

func TestReconcile_StatErrorRollsBack(t *testing.T) {
	ctx := t.Context()
	c, fs := setup(t)

	require.NoError(t, c.Update(ctx, func(tx *catalog.Tx) error {
		return tx.SetExists(ctx, "./rpg", "snes", false)
	}))

	// "./rpg" sorts before the failing "./zelda.smc" and is rewritten first.
	a, err := New(c, WithFilesystem(brokenFS{Filesystem: fs, path: root + "/zelda.smc"}))
	require.NoError(t, err)

	_, err = a.Reconcile(ctx, "snes", root)
	require.ErrorIs(t, err, catalog.ErrFileSystem)

	e, err := c.Get(ctx, "./rpg", "snes")
	require.NoError(t, err)
	assert.False(t, e.Exists, "flags are unchanged after a failed reconcile")
}
