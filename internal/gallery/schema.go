package gallery

import (
	"encoding/json"
	"math"
)

// SchemaVersion is the version of the item shape written by this program.
// Version 1 records carry a single `src` (or `dataURL`) field instead of the
// separate full and thumb renditions.
const SchemaVersion = 2

// RawItem is the tolerant decoding shape for items coming from exports,
// older snapshots and hand-edited files. Every field is optional.
type RawItem struct {
	ID      string          `json:"id"`
	Order   *float64        `json:"order"`
	Title   string          `json:"title"`
	Desc    string          `json:"desc"`
	Tags    json.RawMessage `json:"tags"`
	Fav     bool            `json:"fav"`
	Src     string          `json:"src,omitempty"`
	Full    string          `json:"full,omitempty"`
	DataURL string          `json:"dataURL,omitempty"`
	Thumb   string          `json:"thumb,omitempty"`
}

// WireItem is the item shape of the exported JSON document.
type WireItem struct {
	ID    string   `json:"id"`
	Order int      `json:"order"`
	Title string   `json:"title"`
	Desc  string   `json:"desc"`
	Tags  []string `json:"tags"`
	Fav   bool     `json:"fav"`
	Src   string   `json:"src"`
}

// Upgrade converts a raw record of any historical shape into the current
// Item shape. A `src` value becomes both renditions; `dataURL` was the
// thumbnail field of version 1 snapshots. Upgrade never assigns ids or
// order values: an empty ID stays empty for the caller to fill.
func Upgrade(raw RawItem) Item {
	it := Item{
		ID:    raw.ID,
		Title: raw.Title,
		Desc:  raw.Desc,
		Tags:  decodeTags(raw.Tags),
		Fav:   raw.Fav,
	}
	if raw.Order != nil && !math.IsNaN(*raw.Order) && !math.IsInf(*raw.Order, 0) {
		it.Order = int(*raw.Order)
	}

	it.Full = firstNonEmpty(raw.Full, raw.Src, raw.DataURL, raw.Thumb)
	it.Thumb = firstNonEmpty(raw.Thumb, raw.DataURL, raw.Src, raw.Full)
	return it
}

// UpgradeAll applies Upgrade to every record.
func UpgradeAll(raws []RawItem) []Item {
	items := make([]Item, 0, len(raws))
	for _, r := range raws {
		items = append(items, Upgrade(r))
	}
	return items
}

// ToWire converts an item to its export shape, inlining the larger rendition.
func ToWire(it Item) WireItem {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	return WireItem{
		ID:    it.ID,
		Order: it.Order,
		Title: it.Title,
		Desc:  it.Desc,
		Tags:  tags,
		Fav:   it.Fav,
		Src:   it.ViewerSrc(),
	}
}

// decodeTags accepts an array of strings and ignores anything else, including
// non-string elements inside the array.
func decodeTags(raw json.RawMessage) []string {
	tags := []string{}
	if len(raw) == 0 {
		return tags
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return tags
	}
	for _, v := range values {
		if s, ok := v.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
