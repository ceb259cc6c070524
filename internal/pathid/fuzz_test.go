package pathid

import (
	"path/filepath"
	"testing"
)

func FuzzRoundTrip(f *testing.F) {
	f.Add("/roms/snes/mario.smc", "/roms/snes")
	f.Add("/roms/snes2/game.smc", "/roms/snes")
	f.Add("rpg/../../x.smc", "/roms/snes")
	f.Add("/roms/snes/..hidden", "/roms/snes")
	f.Add("", "/")

	f.Fuzz(func(t *testing.T, path, root string) {
		if root == "" {
			return // relative roots depend on the working directory
		}
		root = filepath.Join("/", root)

		id := ToFileID(path, root)
		got := ToPath(id, root)
		if want := Resolve(path, root); got != want {
			t.Fatalf("ToPath(ToFileID(%q, %q)) = %q (id %q), want %q", path, root, got, id, want)
		}
	})
}
