// internal/fakeapi/server.go

// Package fakeapi is an in-memory books API used to exercise the client
// and the UI end to end. It mirrors the contract of the real service:
// server-assigned UUIDs and timestamps, newest books first, 404 for
// unknown ids and 400 for invalid payloads.
package fakeapi

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"librarian/internal/books"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is one call received by the server.
type Request struct {
	Method    string
	Path      string
	RequestID string
}

// Server holds the books and the scripted failures.
type Server struct {
	mu       sync.Mutex
	books    []books.Book
	failures map[string][]int
	requests []Request
	clock    time.Time
}

// New creates a server holding seed. Seeded books without an ID get one.
func New(seed ...books.Book) *Server {
	s := &Server{
		failures: make(map[string][]int),
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, b := range seed {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if b.CreatedAt == nil {
			now := s.tick()
			b.CreatedAt, b.UpdatedAt = &now, &now
		}
		s.books = append(s.books, b)
	}
	return s
}

// Handler returns the HTTP surface of the fake API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/books", s.handleList)
	r.Post("/books", s.handleCreate)
	r.Get("/books/{id}", s.handleGet)
	r.Put("/books/{id}", s.handleUpdate)
	r.Delete("/books/{id}", s.handleDelete)
	return r
}

// FailNext makes the next request with method answer status instead.
// Calls queue up in order.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], status)
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many calls with method were received.
func (s *Server) Count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Books returns the stored books in list order.
func (s *Server) Books() []books.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-Id"),
		})
		status := 0
		if queued := s.failures[r.Method]; len(queued) > 0 {
			status = queued[0]
			s.failures[r.Method] = queued[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Server) sorted() []books.Book {
	out := slices.Clone(s.books)
	slices.SortStableFunc(out, func(a, b books.Book) int {
		return b.CreatedAt.Compare(*a.CreatedAt)
	})
	return out
}

func (s *Server) index(id string) int {
	return slices.IndexFunc(s.books, func(b books.Book) bool { return b.ID == id })
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := s.sorted()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	i := s.index(id)
	var book books.Book
	if i >= 0 {
		book = s.books[i]
	}
	s.mu.Unlock()

	if i < 0 {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := readBook(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	now := s.tick()
	book := books.Book{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Author:    req.Author,
		Year:      req.Year,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	s.books = append(s.books, book)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := readBook(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	i := s.index(id)
	var book books.Book
	if i >= 0 {
		now := s.tick()
		book = s.books[i]
		book.Title, book.Author, book.Year = req.Title, req.Author, req.Year
		book.UpdatedAt = &now
		s.books[i] = book
	}
	s.mu.Unlock()

	if i < 0 {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	i := s.index(id)
	if i >= 0 {
		s.books = slices.Delete(s.books, i, i+1)
	}
	s.mu.Unlock()

	if i < 0 {
		http.Error(w, "Book not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readBook(w http.ResponseWriter, r *http.Request) (books.Book, bool) {
	var req books.Book
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return books.Book{}, false
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" || req.Year < 1000 {
		http.Error(w, "Invalid book data", http.StatusBadRequest)
		return books.Book{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
