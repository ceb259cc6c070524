package gamelist

import (
	"bytes"
	"strings"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add(sample)
	f.Add(`<gameList><folder><path>./x</path></folder></gameList>`)
	f.Add(`<gameList/>`)

	f.Fuzz(func(t *testing.T, data string) {
		doc, err := Decode(strings.NewReader(data))
		if err != nil {
			return
		}

		// Whatever decodes must encode and decode again to the same entries.
		var buf bytes.Buffer
		if err := doc.Encode(&buf); err != nil {
			return
		}
		again, err := Decode(&buf)
		if err != nil {
			t.Fatalf("re-decode: %v\n%s", err, buf.String())
		}
		if len(again.Games) != len(doc.Games) || len(again.Folders) != len(doc.Folders) {
			t.Fatalf("entry count changed: %d/%d -> %d/%d",
				len(doc.Games), len(doc.Folders), len(again.Games), len(again.Folders))
		}
	})
}
