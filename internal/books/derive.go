// internal/books/derive.go
package books

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

var epoch = time.Unix(0, 0)

// Derive filters and sorts list according to q. The input is never
// modified; the result is a fresh, non-nil slice.
func Derive(list []Book, q Query) []Book {
	search := strings.ToLower(q.Search)

	out := make([]Book, 0, len(list))
	for _, b := range list {
		if matchesSearch(b, search) && matchesYear(b, q.Year) {
			out = append(out, b)
		}
	}

	compare := comparator(q.SortKey)
	if compare == nil {
		return out
	}
	if q.Order == Descending {
		slices.SortStableFunc(out, func(a, b Book) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}

	return out
}

func matchesSearch(b Book, lowered string) bool {
	if lowered == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Title), lowered) ||
		strings.Contains(strings.ToLower(b.Author), lowered)
}

func matchesYear(b Book, year string) bool {
	return year == "" || strconv.Itoa(b.Year) == year
}

func comparator(key SortKey) func(a, b Book) int {
	switch key {
	case SortByTitle:
		return func(a, b Book) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortByAuthor:
		return func(a, b Book) int {
			return strings.Compare(strings.ToLower(a.Author), strings.ToLower(b.Author))
		}
	case SortByYear:
		return func(a, b Book) int { return cmp.Compare(a.Year, b.Year) }
	case SortByCreatedAt:
		return func(a, b Book) int { return instant(a.CreatedAt).Compare(instant(b.CreatedAt)) }
	case SortByUpdatedAt:
		return func(a, b Book) int { return instant(a.UpdatedAt).Compare(instant(b.UpdatedAt)) }
	}
	return nil
}

func instant(t *time.Time) time.Time {
	if t == nil {
		return epoch
	}
	return *t
}

// DistinctYears returns every year present in list, newest first.
func DistinctYears(list []Book) []int {
	seen := make(map[int]struct{}, len(list))
	years := make([]int, 0, len(list))
	for _, b := range list {
		if _, ok := seen[b.Year]; ok {
			continue
		}
		seen[b.Year] = struct{}{}
		years = append(years, b.Year)
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

// Deriver memoizes the most recent Derive result. The version identifies
// the list: callers must bump it whenever the list is replaced.
type Deriver struct {
	mu      sync.Mutex
	valid   bool
	version uint64
	query   Query
	result  []Book
}

// Derive returns the derived list for (version, q), recomputing only when
// either differs from the previous call. Callers must not modify the result.
func (d *Deriver) Derive(version uint64, list []Book, q Query) []Book {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.valid && d.version == version && d.query == q {
		return d.result
	}

	d.result = Derive(list, q)
	d.version = version
	d.query = q
	d.valid = true

	return d.result
}
