package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Document is the exported shape of the corpus.
type Document struct {
	Categories map[Category][]Item `json:"categories" toml:"categories"`
}

// NewDocument groups items by category.
func NewDocument(items []Item) Document {
	doc := Document{Categories: make(map[Category][]Item)}
	for _, it := range items {
		doc.Categories[it.Category] = append(doc.Categories[it.Category], it)
	}
	return doc
}

// Export writes items to w in the given format.
func Export(w io.Writer, items []Item, format string) error {
	doc := NewDocument(items)
	switch format {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}
