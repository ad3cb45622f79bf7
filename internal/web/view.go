// internal/web/view.go
package web

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"librarian/internal/books"
)

// Query parameters holding the dashboard state.
const (
	paramSearch  = "q"
	paramYear    = "year"
	paramSort    = "sort"
	paramNew     = "new"
	paramEdit    = "edit"
	paramView    = "view"
	paramDelete  = "delete"
	paramConfirm = "confirm"
)

type page struct {
	Refresh     bool
	Error       string
	Query       books.Query
	Books       []books.Book
	Total       int
	Years       []yearOption
	SortOptions []sortOption
	Columns     []column
	Rows        []row
	AddURL      string
	ClearURL    string
	DismissURL  string
	Form        *formView
	Details     *detailsView
	Confirm     *confirmView
}

type yearOption struct {
	Value    string
	Selected bool
}

type sortOption struct {
	Value    string
	Label    string
	Selected bool
}

type column struct {
	Label     string
	Href      string
	Indicator string
}

type row struct {
	Book      books.Book
	ViewURL   string
	EditURL   string
	DeleteURL string
}

type formView struct {
	Heading     string
	Action      string
	CancelURL   string
	Title       string
	Author      string
	Year        string
	Errors      books.ValidationErrors
	SubmitLabel string
}

type detailsView struct {
	Book     books.Book
	Missing  bool
	CloseURL string
}

type confirmView struct {
	Book      books.Book
	Action    string
	CancelURL string
}

var columns = []struct {
	key   books.SortKey
	label string
}{
	{books.SortByTitle, "Title"},
	{books.SortByAuthor, "Author"},
	{books.SortByYear, "Year"},
	{books.SortByCreatedAt, "Created"},
	{books.SortByUpdatedAt, "Updated"},
}

var defaultQuery = books.DefaultQuery()

// parseQuery reads the filter and sort state. Unknown sort values fall
// back to the default order.
func parseQuery(v url.Values) books.Query {
	q := defaultQuery
	q.Search = v.Get(paramSearch)
	q.Year = v.Get(paramYear)
	if key, order, err := books.ParseSortOption(v.Get(paramSort)); err == nil {
		q.SortKey, q.Order = key, order
	}
	return q
}

func encodeQuery(q books.Query) url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set(paramSearch, q.Search)
	}
	if q.Year != "" {
		v.Set(paramYear, q.Year)
	}
	if q.SortKey != defaultQuery.SortKey || q.Order != defaultQuery.Order {
		v.Set(paramSort, books.SortOption(q.SortKey, q.Order))
	}
	return v
}

func pageURL(path string, q books.Query, extra ...string) string {
	v := encodeQuery(q)
	for i := 0; i+1 < len(extra); i += 2 {
		v.Set(extra[i], extra[i+1])
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func dashboardURL(q books.Query, extra ...string) string {
	return pageURL("/", q, extra...)
}

func bookURL(id string) string {
	return "/books/" + url.PathEscape(id)
}

func buildColumns(q books.Query) []column {
	out := make([]column, 0, len(columns))
	for _, c := range columns {
		next := q
		next.SortKey, next.Order = books.NextSort(q.SortKey, q.Order, c.key)

		indicator := "↕"
		if c.key == q.SortKey {
			indicator = "↑"
			if q.Order == books.Descending {
				indicator = "↓"
			}
		}

		out = append(out, column{Label: c.label, Href: dashboardURL(next), Indicator: indicator})
	}
	return out
}

func buildYears(list []books.Book, selected string) []yearOption {
	years := books.DistinctYears(list)
	out := make([]yearOption, 0, len(years))
	for _, y := range years {
		value := strconv.Itoa(y)
		out = append(out, yearOption{Value: value, Selected: value == selected})
	}
	return out
}

func buildSortOptions(q books.Query) []sortOption {
	current := books.SortOption(q.SortKey, q.Order)
	choices := books.SortOptions()
	out := make([]sortOption, 0, len(choices))
	for _, c := range choices {
		out = append(out, sortOption{Value: c.Value, Label: c.Label, Selected: c.Value == current})
	}
	return out
}

func buildRows(list []books.Book, q books.Query) []row {
	out := make([]row, 0, len(list))
	for _, b := range list {
		out = append(out, row{
			Book:      b,
			ViewURL:   dashboardURL(q, paramView, b.ID),
			EditURL:   dashboardURL(q, paramEdit, b.ID),
			DeleteURL: dashboardURL(q, paramDelete, b.ID),
		})
	}
	return out
}

func newForm(q books.Query, id string, candidate books.Book) *formView {
	f := &formView{
		Heading:     "Add New Book",
		Action:      pageURL("/books", q),
		CancelURL:   dashboardURL(q),
		Title:       candidate.Title,
		Author:      candidate.Author,
		Year:        strconv.Itoa(candidate.Year),
		SubmitLabel: "Add Book",
	}
	if id != "" {
		f.Heading = "Edit Book"
		f.Action = pageURL(bookURL(id), q)
		f.SubmitLabel = "Update Book"
	}
	return f
}

// parseYear reads the leading integer of raw the way the browser form did,
// so "1815.0" is 1815. Input without one is 0.
func parseYear(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	year, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return year
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return "Not available"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}
