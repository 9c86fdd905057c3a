// Package transfer reads and writes the gallery JSON document used for export
// and import, including the multi-part split for large galleries.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"fygallery/internal/gallery"
)

// DefaultTitle is written when the gallery has no title.
const DefaultTitle = "J Gallery"

// DefaultLimit is the largest serialized document written as a single file.
const DefaultLimit = 4.5 * 1024 * 1024

// Mode selects how an imported document is merged into the collection.
type Mode int

const (
	// Replace clears the collection and the backend before inserting.
	Replace Mode = iota
	// Append adds the imported items after the current ones.
	Append
)

func (m Mode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// ErrNoItems is wrapped by ParseError when the document lacks an items array.
var ErrNoItems = errors.New("document has no items array")

// ParseError reports an import document that could not be used.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid gallery document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is the exported gallery.
type Document struct {
	Session string             `json:"session"`
	Title   string             `json:"title"`
	Items   []gallery.WireItem `json:"items"`
}

// Imported is a parsed document with its items already upgraded to the
// current shape. Items may have empty ids.
type Imported struct {
	Meta  gallery.Meta
	Items []gallery.Item
}

// NewDocument builds the export document for the given items.
func NewDocument(meta gallery.Meta, items []gallery.Item) Document {
	title := meta.Title
	if title == "" {
		title = DefaultTitle
	}
	doc := Document{
		Session: meta.Session,
		Title:   title,
		Items:   make([]gallery.WireItem, 0, len(items)),
	}
	for _, it := range items {
		doc.Items = append(doc.Items, gallery.ToWire(it))
	}
	return doc
}

// Encode serializes a document in its compact form.
func Encode(doc Document) ([]byte, error) {
	if doc.Items == nil {
		doc.Items = []gallery.WireItem{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gallery document: %w", err)
	}
	return data, nil
}

// Parse decodes an import document. A document that is not JSON, or whose
// items field is missing or not an array, yields a *ParseError.
func Parse(data []byte) (*Imported, error) {
	var envelope struct {
		Session string          `json:"session"`
		Title   string          `json:"title"`
		Items   json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &envelope); err != nil {
		return nil, &ParseError{Err: err}
	}
	raw := bytes.TrimSpace(envelope.Items)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &ParseError{Err: ErrNoItems}
	}
	var raws []gallery.RawItem
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("items: %w", err)}
	}
	return &Imported{
		Meta:  gallery.Meta{Title: envelope.Title, Session: envelope.Session},
		Items: gallery.UpgradeAll(raws),
	}, nil
}
