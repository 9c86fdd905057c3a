package gallery

import (
	"sort"
	"strings"
)

// TagWithCount holds a tag name and the number of items carrying it.
type TagWithCount struct {
	Name  string
	Count int
}

// TagCounts returns every distinct tag in items with its usage count, sorted
// by name. A tag repeated on one item counts once for that item.
func TagCounts(items []Item) []TagWithCount {
	counts := make(map[string]int)
	for _, it := range items {
		seen := make(map[string]bool, len(it.Tags))
		for _, t := range it.Tags {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			counts[t]++
		}
	}
	out := make([]TagWithCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagWithCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// ParseTags splits user input on commas, trims each piece and drops empties
// and repeats while keeping first-seen order.
func ParseTags(input string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(input, ",") {
		t := strings.TrimSpace(part)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// addToList appends item when it is not already present. Returns true if added.
func addToList(list []string, item string) ([]string, bool) {
	for _, existing := range list {
		if existing == item {
			return list, false
		}
	}
	return append(list, item), true
}

// removeFromList returns list without any occurrence of item.
func removeFromList(list []string, item string) []string {
	out := make([]string, 0, len(list))
	for _, existing := range list {
		if existing != item {
			out = append(out, existing)
		}
	}
	return out
}

// AddTags adds each tag not already on the item. Returns true if anything changed.
func (it *Item) AddTags(tags ...string) bool {
	changed := false
	for _, t := range tags {
		if t == "" {
			continue
		}
		var added bool
		it.Tags, added = addToList(it.Tags, t)
		changed = changed || added
	}
	return changed
}

// RemoveTags drops every occurrence of the given tags. Returns true if anything changed.
func (it *Item) RemoveTags(tags ...string) bool {
	before := len(it.Tags)
	for _, t := range tags {
		it.Tags = removeFromList(it.Tags, t)
	}
	return len(it.Tags) != before
}
