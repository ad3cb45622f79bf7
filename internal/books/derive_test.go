// internal/books/derive_test.go
package books

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func ids(list []Book) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

func sampleLibrary() []Book {
	return []Book{
		{ID: "1", Title: "The Go Programming Language", Author: "Alan Donovan", Year: 2015, CreatedAt: ts("2024-03-01T10:00:00Z")},
		{ID: "2", Title: "introducing go", Author: "Caleb Doxsey", Year: 2016, CreatedAt: ts("2024-01-01T10:00:00Z"), UpdatedAt: ts("2024-05-01T10:00:00Z")},
		{ID: "3", Title: "Concurrency in Go", Author: "Katherine Cox-Buday", Year: 2017},
		{ID: "4", Title: "Go in Practice", Author: "Matt Butcher", Year: 2016, CreatedAt: ts("2024-02-01T10:00:00Z")},
		{ID: "5", Title: "Dune", Author: "Frank Herbert", Year: 1965, CreatedAt: ts("2023-12-01T10:00:00Z")},
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{
			name: "default sort is case insensitive title",
			q:    DefaultQuery(),
			want: []string{"3", "5", "4", "2", "1"},
		},
		{
			name: "title descending",
			q:    Query{SortKey: SortByTitle, Order: Descending},
			want: []string{"1", "2", "4", "5", "3"},
		},
		{
			name: "search matches title case insensitively",
			q:    Query{Search: "GO", SortKey: SortByTitle, Order: Ascending},
			want: []string{"3", "4", "2", "1"},
		},
		{
			name: "search matches author",
			q:    Query{Search: "herb", SortKey: SortByTitle, Order: Ascending},
			want: []string{"5"},
		},
		{
			name: "year filter is exact",
			q:    Query{Year: "2016", SortKey: SortByTitle, Order: Ascending},
			want: []string{"4", "2"},
		},
		{
			name: "year filter does not match prefix",
			q:    Query{Year: "201", SortKey: SortByTitle, Order: Ascending},
			want: []string{},
		},
		{
			name: "both filters must hold",
			q:    Query{Search: "practice", Year: "2015", SortKey: SortByTitle, Order: Ascending},
			want: []string{},
		},
		{
			name: "year ties keep list order",
			q:    Query{SortKey: SortByYear, Order: Ascending},
			want: []string{"5", "1", "2", "4", "3"},
		},
		{
			name: "year descending ties keep list order",
			q:    Query{SortKey: SortByYear, Order: Descending},
			want: []string{"3", "2", "4", "1", "5"},
		},
		{
			name: "missing created_at sorts as epoch",
			q:    Query{SortKey: SortByCreatedAt, Order: Ascending},
			want: []string{"3", "5", "2", "4", "1"},
		},
		{
			name: "recently updated",
			q:    Query{SortKey: SortByUpdatedAt, Order: Descending},
			want: []string{"2", "1", "3", "4", "5"},
		},
		{
			name: "unknown key keeps list order",
			q:    Query{SortKey: "isbn", Order: Ascending},
			want: []string{"1", "2", "3", "4", "5"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Derive(sampleLibrary(), tc.q)))
		})
	}
}

func TestDerive_DoesNotModifyInput(t *testing.T) {
	list := sampleLibrary()

	_ = Derive(list, Query{SortKey: SortByYear, Order: Descending})

	assert.Equal(t, sampleLibrary(), list)
}

func TestDerive_EmptyStates(t *testing.T) {
	empty := Derive(nil, DefaultQuery())
	require.NotNil(t, empty)
	assert.Empty(t, empty)

	filteredOut := Derive([]Book{{ID: "1", Title: "Dune", Author: "Frank Herbert", Year: 1965}}, Query{Search: "zzz", SortKey: SortByTitle, Order: Ascending})
	require.NotNil(t, filteredOut)
	assert.Empty(t, filteredOut)
}

func TestDistinctYears(t *testing.T) {
	assert.Equal(t, []int{2017, 2016, 2015, 1965}, DistinctYears(sampleLibrary()))
	assert.Empty(t, DistinctYears(nil))
}

func TestDeriver_Memoizes(t *testing.T) {
	var d Deriver
	list := sampleLibrary()
	q := DefaultQuery()

	first := d.Derive(1, list, q)
	second := d.Derive(1, list, q)
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])

	third := d.Derive(2, list, q)
	assert.NotSame(t, &first[0], &third[0])
	assert.Equal(t, first, third)

	q.Order = Descending
	fourth := d.Derive(2, list, q)
	assert.Equal(t, "1", fourth[0].ID)
}

var sortKeys = []SortKey{SortByTitle, SortByAuthor, SortByYear, SortByCreatedAt, SortByUpdatedAt}

func bookGen() *rapid.Generator[Book] {
	return rapid.Custom(func(t *rapid.T) Book {
		b := Book{
			ID:     rapid.StringMatching(`[a-f0-9]{8}`).Draw(t, "id"),
			Title:  rapid.StringMatching(`[A-Za-z ]{0,10}`).Draw(t, "title"),
			Author: rapid.StringMatching(`[A-Za-z ]{0,10}`).Draw(t, "author"),
			Year:   rapid.IntRange(1990, 1995).Draw(t, "year"),
		}
		if rapid.Bool().Draw(t, "hasCreated") {
			created := time.Unix(rapid.Int64Range(0, 1<<31).Draw(t, "created"), 0).UTC()
			b.CreatedAt = &created
		}
		if rapid.Bool().Draw(t, "hasUpdated") {
			updated := time.Unix(rapid.Int64Range(0, 1<<31).Draw(t, "updated"), 0).UTC()
			b.UpdatedAt = &updated
		}
		return b
	})
}

func queryGen() *rapid.Generator[Query] {
	return rapid.Custom(func(t *rapid.T) Query {
		q := Query{
			SortKey: rapid.SampledFrom(sortKeys).Draw(t, "key"),
			Order:   rapid.SampledFrom([]SortOrder{Ascending, Descending}).Draw(t, "order"),
		}
		if rapid.Bool().Draw(t, "hasSearch") {
			q.Search = rapid.StringMatching(`[A-Za-z]{1,3}`).Draw(t, "search")
		}
		if rapid.Bool().Draw(t, "hasYear") {
			q.Year = strconv.Itoa(rapid.IntRange(1990, 1995).Draw(t, "yearFilter"))
		}
		return q
	})
}

func TestDerive_ReferentiallyTransparent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		list := rapid.SliceOf(bookGen()).Draw(t, "books")
		q := queryGen().Draw(t, "query")

		first := Derive(list, q)
		second := Derive(list, q)

		if !slices.EqualFunc(first, second, sameBook) {
			t.Fatalf("derive is not deterministic: %v vs %v", ids(first), ids(second))
		}
	})
}

func TestDerive_FilterIsConjunction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		list := rapid.SliceOfDistinct(bookGen(), func(b Book) string { return b.ID }).Draw(t, "books")
		q := queryGen().Draw(t, "query")

		searchOnly := setOf(Derive(list, Query{Search: q.Search, SortKey: q.SortKey, Order: q.Order}))
		yearOnly := setOf(Derive(list, Query{Year: q.Year, SortKey: q.SortKey, Order: q.Order}))
		both := setOf(Derive(list, q))

		for _, b := range list {
			_, inSearch := searchOnly[b.ID]
			_, inYear := yearOnly[b.ID]
			_, inBoth := both[b.ID]
			if inBoth != (inSearch && inYear) {
				t.Fatalf("book %s: search=%v year=%v combined=%v", b.ID, inSearch, inYear, inBoth)
			}

			wantSearch := q.Search == "" ||
				strings.Contains(strings.ToLower(b.Title), strings.ToLower(q.Search)) ||
				strings.Contains(strings.ToLower(b.Author), strings.ToLower(q.Search))
			if inSearch != wantSearch {
				t.Fatalf("book %q/%q search %q: got %v", b.Title, b.Author, q.Search, inSearch)
			}
		}
	})
}

func TestDerive_DescendingReversesAscendingWithoutTies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ns := rapid.SliceOfDistinct(rapid.IntRange(1000, 999999), func(n int) int { return n }).Draw(t, "keys")
		key := rapid.SampledFrom(sortKeys).Draw(t, "key")

		list := make([]Book, 0, len(ns))
		for _, n := range ns {
			at := time.Unix(int64(n)*60, 0).UTC()
			list = append(list, Book{
				ID:        strconv.Itoa(n),
				Title:     fmt.Sprintf("Title %06d", n),
				Author:    fmt.Sprintf("Author %06d", n),
				Year:      n,
				CreatedAt: &at,
				UpdatedAt: &at,
			})
		}

		asc := ids(Derive(list, Query{SortKey: key, Order: Ascending}))
		desc := ids(Derive(list, Query{SortKey: key, Order: Descending}))
		slices.Reverse(asc)

		if !slices.Equal(asc, desc) {
			t.Fatalf("key %s: reversed asc %v != desc %v", key, asc, desc)
		}
	})
}

func sameBook(a, b Book) bool {
	return a.ID == b.ID && a.Title == b.Title && a.Author == b.Author && a.Year == b.Year
}

func setOf(list []Book) map[string]struct{} {
	out := make(map[string]struct{}, len(list))
	for _, b := range list {
		out[b.ID] = struct{}{}
	}
	return out
}
