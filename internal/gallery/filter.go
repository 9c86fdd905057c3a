package gallery

import (
	"cmp"
	"slices"
	"strings"
)

// Filter is the state of the search box, the tag chips and the
// favorites-only toggle.
type Filter struct {
	Query   string
	Tag     string
	FavOnly bool
}

// IsZero reports whether the filter lets every item through.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Query) == "" && f.Tag == "" && !f.FavOnly
}

// Match reports whether an item passes the text, tag and favorite checks.
func (f Filter) Match(it Item) bool {
	return f.textMatch(it) && f.tagMatch(it) && f.favMatch(it)
}

func (f Filter) textMatch(it Item) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	hay := strings.ToLower(it.Title + " " + it.Desc + " " + strings.Join(it.Tags, " "))
	return strings.Contains(hay, q)
}

func (f Filter) tagMatch(it Item) bool {
	return f.Tag == "" || it.HasTag(f.Tag)
}

func (f Filter) favMatch(it Item) bool {
	return !f.FavOnly || it.Fav
}

// Apply returns the filtered view: the matching items in stable ascending
// order. The input slice is left untouched.
func Apply(items []Item, f Filter) []Item {
	view := make([]Item, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			view = append(view, it)
		}
	}
	SortByOrder(view)
	return view
}

// SortByOrder sorts items by ascending order in place. Items with equal order
// keep their relative position.
func SortByOrder(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return cmp.Compare(a.Order, b.Order)
	})
}
