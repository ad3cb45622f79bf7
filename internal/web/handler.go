// internal/web/handler.go
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/hex"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/blake2b"

	"librarian/internal/books"
	"librarian/internal/clients"
	"librarian/internal/library"
)

//go:embed templates/*.html
var templateFS embed.FS

// Library is the state container behind the UI.
type Library interface {
	Snapshot() library.Snapshot
	Refresh(ctx context.Context) error
	Add(ctx context.Context, candidate books.Book) error
	Update(ctx context.Context, id string, candidate books.Book) error
	Remove(ctx context.Context, id string) error
	Lookup(ctx context.Context, id string) (books.Book, error)
	ClearError()
}

var _ Library = (*library.Container)(nil)

type Handler struct {
	library Library
	logger  *slog.Logger
	tmpl    *template.Template
	deriver books.Deriver
	now     func() time.Time
}

func NewHandler(lib Library, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"date":      formatDate,
		"timestamp": formatTimestamp,
	}).ParseFS(templateFS, "templates/*.html"))

	return &Handler{
		library: lib,
		logger:  logger,
		tmpl:    tmpl,
		now:     time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleDashboard)
	r.Get("/healthz", handleHealth)
	r.Post("/books", h.handleCreate)
	r.Post("/books/{id}", h.handleUpdate)
	r.Post("/books/{id}/delete", h.handleDelete)
	r.Post("/refresh", h.handleRefresh)
	r.Post("/error/dismiss", h.handleDismiss)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := parseQuery(params)
	snap := h.library.Snapshot()

	if snap.Loading {
		h.render(w, r, http.StatusOK, "loading", &page{Refresh: true})
		return
	}

	p := h.dashboard(snap, q)

	switch {
	case params.Get(paramNew) != "":
		p.Form = newForm(q, "", books.Book{Year: h.now().Year()})

	case params.Get(paramEdit) != "":
		id := params.Get(paramEdit)
		if book, ok := findBook(snap.Books, id); ok {
			p.Form = newForm(q, id, book)
		} else {
			p.Details = &detailsView{Missing: true, CloseURL: dashboardURL(q)}
		}

	case params.Get(paramView) != "":
		book, err := h.library.Lookup(r.Context(), params.Get(paramView))
		switch {
		case err == nil:
			p.Details = &detailsView{Book: book, CloseURL: dashboardURL(q)}
		case errors.Is(err, clients.ErrNotFound):
			p.Details = &detailsView{Missing: true, CloseURL: dashboardURL(q)}
		default:
			p.Error = h.library.Snapshot().Err
		}

	case params.Get(paramDelete) != "":
		id := params.Get(paramDelete)
		if book, ok := findBook(snap.Books, id); ok {
			p.Confirm = &confirmView{
				Book:      book,
				Action:    pageURL(bookURL(id)+"/delete", q),
				CancelURL: dashboardURL(q),
			}
		} else {
			p.Details = &detailsView{Missing: true, CloseURL: dashboardURL(q)}
		}
	}

	h.render(w, r, http.StatusOK, "dashboard", p)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.submitForm(w, r, "", h.library.Add)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.submitForm(w, r, id, func(ctx context.Context, candidate books.Book) error {
		return h.library.Update(ctx, id, candidate)
	})
}

// submitForm validates the posted book and hands it to submit. On failure
// the form is rendered again with the user's input intact.
func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request, id string, submit func(context.Context, books.Book) error) {
	q := parseQuery(r.URL.Query())
	candidate := books.Book{
		Title:  r.PostFormValue("title"),
		Author: r.PostFormValue("author"),
		Year:   parseYear(r.PostFormValue("year")),
	}

	errs := books.Validate(candidate)
	if len(errs) == 0 {
		err := submit(r.Context(), candidate)
		if err == nil {
			http.Redirect(w, r, dashboardURL(q), http.StatusSeeOther)
			return
		}

		var verrs books.ValidationErrors
		if !errors.As(err, &verrs) {
			h.renderFormFailure(w, r, q, id, candidate, err)
			return
		}
		errs = verrs
	}

	snap := h.library.Snapshot()
	p := h.dashboard(snap, q)
	p.Form = newForm(q, id, candidate)
	p.Form.Errors = errs
	h.render(w, r, http.StatusUnprocessableEntity, "dashboard", p)
}

func (h *Handler) renderFormFailure(w http.ResponseWriter, r *http.Request, q books.Query, id string, candidate books.Book, err error) {
	p := h.dashboard(h.library.Snapshot(), q)
	p.Form = newForm(q, id, candidate)

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, library.ErrSubmissionInProgress):
		status = http.StatusConflict
		p.Error = err.Error()
	case errors.Is(err, library.ErrMissingID):
		status = http.StatusBadRequest
		p.Error = err.Error()
	}

	h.render(w, r, status, "dashboard", p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r.URL.Query())
	id := chi.URLParam(r, "id")

	if r.PostFormValue(paramConfirm) != "yes" {
		http.Error(w, "deletion must be confirmed", http.StatusBadRequest)
		return
	}

	err := h.library.Remove(r.Context(), id)
	if err == nil {
		http.Redirect(w, r, dashboardURL(q), http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	if errors.Is(err, library.ErrSubmissionInProgress) {
		status = http.StatusConflict
	}

	p := h.dashboard(h.library.Snapshot(), q)
	if p.Error == "" {
		p.Error = err.Error()
	}
	h.render(w, r, status, "dashboard", p)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_ = h.library.Refresh(r.Context())
	http.Redirect(w, r, dashboardURL(parseQuery(r.URL.Query())), http.StatusSeeOther)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	h.library.ClearError()
	http.Redirect(w, r, dashboardURL(parseQuery(r.URL.Query())), http.StatusSeeOther)
}

func (h *Handler) dashboard(snap library.Snapshot, q books.Query) *page {
	derived := h.deriver.Derive(snap.Version, snap.Books, q)

	return &page{
		Error:       snap.Err,
		Query:       q,
		Books:       derived,
		Total:       len(snap.Books),
		Years:       buildYears(snap.Books, q.Year),
		SortOptions: buildSortOptions(q),
		Columns:     buildColumns(q),
		Rows:        buildRows(derived, q),
		AddURL:      dashboardURL(q, paramNew, "1"),
		ClearURL:    dashboardURL(q.ClearFilters()),
		DismissURL:  pageURL("/error/dismiss", q),
	}
}

func findBook(list []books.Book, id string) (books.Book, bool) {
	i := slices.IndexFunc(list, func(b books.Book) bool { return b.ID == id })
	if i < 0 {
		return books.Book{}, false
	}
	return list[i], true
}

// render executes name into a buffer so template failures never produce a
// partial page. Successful GETs carry a weak ETag of the body.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	if r.Method == http.MethodGet && status == http.StatusOK {
		etag := bodyETag(buf.Bytes())
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func bodyETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `W/"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}
