// Package gamelist converts catalog rows to and from the gamelist.xml
// interchange format.
package gamelist

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/agentic-research/gamelist/internal/catalog"
)

// Document is a parsed gamelist.xml: a <gameList> root holding <game>
// elements followed by <folder> elements.
type Document struct {
	XMLName xml.Name `xml:"gameList"`
	Games   []Entry  `xml:"game"`
	Folders []Entry  `xml:"folder"`
}

// Entry is one <game> or <folder> element.
type Entry struct {
	Path   string  `xml:"path"`
	Fields []Field `xml:",any"`
}

// Field is a metadata child element, named by its field key.
type Field struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Get returns the text of the first child named key.
func (e Entry) Get(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.XMLName.Local == key {
			return f.Value, true
		}
	}
	return "", false
}

// Decode parses a gamelist document. Malformed XML or a root other than
// <gameList> is a parse error.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: gamelist: %w", catalog.ErrParse, err)
	}
	return &doc, nil
}

// Encode writes d as indented XML with a declaration header.
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode gamelist: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
