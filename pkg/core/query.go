package core

import "strings"

// AllCategories is the sentinel that matches every note and always heads the
// category vocabulary.
const AllCategories = "All"

// Query selects notes by category and free text.
type Query struct {
	Category string
	Search   string
}

// View is a filtered projection of the store together with the category
// vocabulary of the full note set.
type View struct {
	Notes      []Note
	Categories []string
}

// Categories returns AllCategories followed by every distinct non-empty
// category in order of first appearance.
func Categories(notes []Note) []string {
	out := []string{AllCategories}
	seen := make(map[string]bool)
	for _, n := range notes {
		if n.Category == "" || seen[n.Category] {
			continue
		}
		seen[n.Category] = true
		out = append(out, n.Category)
	}
	return out
}

// Matches reports whether n passes q.
func (q Query) Matches(n Note) bool {
	if q.Category != "" && q.Category != AllCategories && n.Category != q.Category {
		return false
	}

	needle := strings.ToLower(q.Search)
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), needle) {
		return true
	}
	if text, ok := n.SearchText(); ok && strings.Contains(strings.ToLower(text), needle) {
		return true
	}
	return false
}

// Filter returns the notes passing q, preserving their order. It has no side
// effects and never touches a store.
func Filter(notes []Note, q Query) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if q.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}
