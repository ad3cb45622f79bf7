// internal/library/state.go
package library

import (
	"errors"

	"librarian/internal/books"
	"librarian/internal/clients"
)

// Snapshot is one published state of the container. Snapshots are never
// modified after publication; Books in particular is shared read-only.
type Snapshot struct {
	Books      []books.Book
	Loading    bool
	Submitting bool
	Err        string
	// Version increases every time Books is replaced.
	Version uint64
}

// Action is a state transition applied by Reduce.
type Action interface {
	apply(Snapshot) Snapshot
}

type (
	RefreshStarted   struct{}
	RefreshSucceeded struct{ Books []books.Book }
	RefreshFailed    struct{ Err error }
	SubmitStarted    struct{}
	SubmitSucceeded  struct{}
	SubmitFailed     struct{ Err error }
	LookupFailed     struct{ Err error }
	ErrorCleared     struct{}
)

// Reduce returns the snapshot that results from applying a to s.
func Reduce(s Snapshot, a Action) Snapshot {
	return a.apply(s)
}

func (RefreshStarted) apply(s Snapshot) Snapshot {
	s.Loading = true
	s.Err = ""
	return s
}

func (a RefreshSucceeded) apply(s Snapshot) Snapshot {
	s.Books = a.Books
	if s.Books == nil {
		s.Books = []books.Book{}
	}
	s.Loading = false
	s.Version++
	return s
}

func (a RefreshFailed) apply(s Snapshot) Snapshot {
	s.Loading = false
	s.Err = message(a.Err)
	return s
}

func (SubmitStarted) apply(s Snapshot) Snapshot {
	s.Submitting = true
	return s
}

func (SubmitSucceeded) apply(s Snapshot) Snapshot {
	s.Submitting = false
	return s
}

func (a SubmitFailed) apply(s Snapshot) Snapshot {
	s.Submitting = false
	s.Err = message(a.Err)
	return s
}

func (a LookupFailed) apply(s Snapshot) Snapshot {
	s.Err = message(a.Err)
	return s
}

func (ErrorCleared) apply(s Snapshot) Snapshot {
	s.Err = ""
	return s
}

// message is the banner text for err. API failures show only their
// summary; the transport detail stays in the logs.
func message(err error) string {
	if err == nil {
		return "unknown error"
	}
	var apiErr *clients.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
