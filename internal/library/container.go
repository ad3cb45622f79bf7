// internal/library/container.go
package library

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"librarian/internal/books"
	"librarian/internal/clients"
)

var (
	// ErrSubmissionInProgress is returned when a mutation is attempted while
	// another one has not completed yet.
	ErrSubmissionInProgress = errors.New("another submission is in progress")

	// ErrMissingID is returned when an update or removal names no book.
	ErrMissingID = errors.New("book id is required")
)

// Store is the remote side of the container.
type Store interface {
	List(ctx context.Context) ([]books.Book, error)
	Get(ctx context.Context, id string) (books.Book, error)
	Create(ctx context.Context, book books.Book) error
	Update(ctx context.Context, id string, book books.Book) error
	Delete(ctx context.Context, id string) error
}

var _ Store = (*clients.BooksClient)(nil)

// Container holds the authoritative list of books as last fetched from the
// Store. Every completed mutation is followed by a full refetch, so the
// published list always reflects the last known server state.
type Container struct {
	store  Store
	logger *slog.Logger

	// opMu serializes refreshes and mutations.
	opMu sync.Mutex
	// submitting is held for the whole of one mutation.
	submitting atomic.Bool

	mu   sync.RWMutex
	snap Snapshot
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the container's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a container and performs the initial refresh. A failed
// initial refresh is reported through the snapshot, not as an error.
func New(ctx context.Context, store Store, opts ...Option) *Container {
	c := &Container{
		store:  store,
		logger: slog.Default(),
		snap:   Snapshot{Books: []books.Book{}},
	}
	for _, opt := range opts {
		opt(c)
	}

	_ = c.Refresh(ctx)

	return c
}

// Snapshot returns the current state.
func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// ClearError dismisses the current error message.
func (c *Container) ClearError() {
	c.dispatch(ErrorCleared{})
}

// Refresh replaces the list with the Store's current contents.
func (c *Container) Refresh(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.refreshLocked(ctx)
}

func (c *Container) refreshLocked(ctx context.Context) error {
	c.dispatch(RefreshStarted{})

	list, err := c.store.List(ctx)
	if err != nil {
		c.dispatch(RefreshFailed{Err: err})
		c.logger.ErrorContext(ctx, "refresh failed", "error", err)
		return err
	}

	c.dispatch(RefreshSucceeded{Books: list})
	c.logger.DebugContext(ctx, "books refreshed", "count", len(list))
	return nil
}

// Add validates and creates candidate, then refreshes. Invalid candidates
// are rejected with books.ValidationErrors before any network call.
func (c *Container) Add(ctx context.Context, candidate books.Book) error {
	if errs := books.Validate(candidate); len(errs) > 0 {
		return errs
	}

	return c.submit(ctx, "add", func(ctx context.Context) error {
		return c.store.Create(ctx, candidate)
	})
}

// Update validates candidate and replaces the book with the given ID.
func (c *Container) Update(ctx context.Context, id string, candidate books.Book) error {
	if id == "" {
		return ErrMissingID
	}
	if errs := books.Validate(candidate); len(errs) > 0 {
		return errs
	}

	return c.submit(ctx, "update", func(ctx context.Context) error {
		return c.store.Update(ctx, id, candidate)
	})
}

// Remove deletes the book with the given ID. Callers must have obtained
// the user's confirmation.
func (c *Container) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	return c.submit(ctx, "remove", func(ctx context.Context) error {
		return c.store.Delete(ctx, id)
	})
}

// Lookup fetches a fresh copy of one book. A missing book is reported as
// clients.ErrNotFound and leaves the error message untouched.
func (c *Container) Lookup(ctx context.Context, id string) (books.Book, error) {
	book, err := c.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, clients.ErrNotFound) {
			c.dispatch(LookupFailed{Err: err})
			c.logger.ErrorContext(ctx, "lookup failed", "id", id, "error", err)
		}
		return books.Book{}, err
	}
	return book, nil
}

// submit runs one mutation followed by a refresh. A failed refresh after a
// successful call is surfaced through the snapshot only.
func (c *Container) submit(ctx context.Context, op string, call func(context.Context) error) error {
	if !c.submitting.CompareAndSwap(false, true) {
		return ErrSubmissionInProgress
	}
	defer c.submitting.Store(false)

	c.dispatch(SubmitStarted{})

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := call(ctx); err != nil {
		c.dispatch(SubmitFailed{Err: err})
		c.logger.ErrorContext(ctx, "submission failed", "op", op, "error", err)
		return err
	}

	c.logger.InfoContext(ctx, "submission succeeded", "op", op)
	_ = c.refreshLocked(ctx)
	c.dispatch(SubmitSucceeded{})

	return nil
}

func (c *Container) dispatch(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Reduce(c.snap, a)
}
