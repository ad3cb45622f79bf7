// internal/books/sort.go
package books

import (
	"fmt"
	"strings"
)

// SortChoice is one entry of the combined sort select.
type SortChoice struct {
	Value string
	Label string
}

var sortChoices = []SortChoice{
	{Value: SortOption(SortByTitle, Ascending), Label: "Title (A-Z)"},
	{Value: SortOption(SortByTitle, Descending), Label: "Title (Z-A)"},
	{Value: SortOption(SortByAuthor, Ascending), Label: "Author (A-Z)"},
	{Value: SortOption(SortByAuthor, Descending), Label: "Author (Z-A)"},
	{Value: SortOption(SortByYear, Ascending), Label: "Year (Oldest first)"},
	{Value: SortOption(SortByYear, Descending), Label: "Year (Newest first)"},
	{Value: SortOption(SortByCreatedAt, Descending), Label: "Recently added"},
	{Value: SortOption(SortByUpdatedAt, Descending), Label: "Recently updated"},
}

// SortOptions lists the entries offered by the sort select.
func SortOptions() []SortChoice {
	out := make([]SortChoice, len(sortChoices))
	copy(out, sortChoices)
	return out
}

// SortOption encodes a key and order as the combined select value, e.g. "title-asc".
func SortOption(key SortKey, order SortOrder) string {
	return string(key) + "-" + string(order)
}

// ParseSortOption decodes a combined select value produced by SortOption.
func ParseSortOption(value string) (SortKey, SortOrder, error) {
	i := strings.LastIndex(value, "-")
	if i < 0 {
		return "", "", fmt.Errorf("invalid sort option %q", value)
	}

	key, order := SortKey(value[:i]), SortOrder(value[i+1:])
	if !key.Valid() {
		return "", "", fmt.Errorf("unknown sort key %q", key)
	}
	if !order.Valid() {
		return "", "", fmt.Errorf("unknown sort order %q", order)
	}

	return key, order, nil
}

// NextSort is the sort state after the header for clicked is activated:
// the active key flips its order, any other key starts ascending.
func NextSort(key SortKey, order SortOrder, clicked SortKey) (SortKey, SortOrder) {
	if clicked == key {
		return key, order.Flip()
	}
	return clicked, Ascending
}
