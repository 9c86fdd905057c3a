package transfer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fygallery/internal/gallery"
)

// Part is one output file of an export.
type Part struct {
	Name string
	Data []byte
}

// Split serializes doc into one or more documents of the same shape, each no
// larger than limit bytes. Items are packed greedily in order. An item that
// alone exceeds limit is written in a part of its own.
func Split(doc Document, limit int) ([][]byte, error) {
	whole, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || len(whole) <= limit {
		return [][]byte{whole}, nil
	}

	shell := Document{Session: doc.Session, Title: doc.Title}
	base, err := Encode(shell)
	if err != nil {
		return nil, err
	}

	encoded := make([][]byte, len(doc.Items))
	for i, it := range doc.Items {
		b, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item %s: %w", it.ID, err)
		}
		encoded[i] = b
	}

	var parts [][]byte
	start := 0
	for start < len(encoded) {
		size := len(base)
		end := start
		for end < len(encoded) {
			next := len(encoded[end])
			if end > start {
				next++ // separating comma
			}
			if size+next > limit && end > start {
				break
			}
			size += next
			end++
		}
		chunk := shell
		chunk.Items = doc.Items[start:end]
		data, err := Encode(chunk)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
		start = end
	}
	return parts, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// BaseName derives the export file prefix from the session label, or the
// gallery title when the session is blank.
func BaseName(session, title string) string {
	for _, s := range []string{session, title} {
		if name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(s), "_"), "_"); name != "" {
			return name
		}
	}
	return "gallery"
}

// PartNames returns the file names for n parts: base_stamp.json followed by
// base_stamp-part2.json, base_stamp-part3.json and so on.
func PartNames(base string, at time.Time, n int) []string {
	stem := fmt.Sprintf("%s_%s", base, at.Format("2006-01-02_15-04"))
	names := make([]string, n)
	for i := range names {
		if i == 0 {
			names[i] = stem + ".json"
			continue
		}
		names[i] = fmt.Sprintf("%s-part%d.json", stem, i+1)
	}
	return names
}

// Build prepares the named export parts for a set of items.
func Build(meta gallery.Meta, items []gallery.Item, at time.Time, limit int) ([]Part, error) {
	chunks, err := Split(NewDocument(meta, items), limit)
	if err != nil {
		return nil, err
	}
	names := PartNames(BaseName(meta.Session, meta.Title), at, len(chunks))
	parts := make([]Part, len(chunks))
	for i := range chunks {
		parts[i] = Part{Name: names[i], Data: chunks[i]}
	}
	return parts, nil
}

// WriteFiles writes the parts into dir and returns the written paths.
func WriteFiles(dir string, parts []Part) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		path := filepath.Join(dir, p.Name)
		if err := os.WriteFile(path, p.Data, 0600); err != nil {
			return paths, fmt.Errorf("failed to write export part %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
