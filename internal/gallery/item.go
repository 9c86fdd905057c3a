// Package gallery holds the photo gallery data model: item records, gallery
// metadata, preferences, and the pure functions that filter, order and upgrade
// them. Nothing in this package performs I/O.
package gallery

import (
	"slices"

	"github.com/google/uuid"
)

// Item is one photograph in the gallery.
type Item struct {
	ID    string   `json:"id"`
	Order int      `json:"order"`
	Title string   `json:"title"`
	Desc  string   `json:"desc"`
	Tags  []string `json:"tags"`
	Fav   bool     `json:"fav"`
	Full  string   `json:"full,omitempty"`  // data URI of the viewer-sized rendition
	Thumb string   `json:"thumb,omitempty"` // data URI of the grid-sized rendition
}

// Meta is the gallery-level metadata stored next to the items.
type Meta struct {
	Title   string `json:"title"`
	Session string `json:"session,omitempty"`
}

// Snapshot is everything a backend persists for one gallery.
type Snapshot struct {
	Meta  Meta
	Items []Item
}

// NewID returns a fresh opaque item identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the item so callers never share the tag slice
// with the store.
func (it Item) Clone() Item {
	it.Tags = slices.Clone(it.Tags)
	if it.Tags == nil {
		it.Tags = []string{}
	}
	return it
}

// HasTag reports whether the item carries exactly the given tag.
func (it Item) HasTag(tag string) bool {
	return slices.Contains(it.Tags, tag)
}

// DisplaySrc returns the rendition the grid should show, falling back to the
// full image for degraded items that never got a thumbnail.
func (it Item) DisplaySrc() string {
	if it.Thumb != "" {
		return it.Thumb
	}
	return it.Full
}

// ViewerSrc returns the rendition the fullscreen viewer should show.
func (it Item) ViewerSrc() string {
	if it.Full != "" {
		return it.Full
	}
	return it.Thumb
}

// MaxOrder returns the largest order value in items, or 0 for an empty list.
func MaxOrder(items []Item) int {
	m := 0
	for _, it := range items {
		if it.Order > m {
			m = it.Order
		}
	}
	return m
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
