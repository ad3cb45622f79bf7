// internal/clients/books_client.go
package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"librarian/internal/books"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const instrumentationName = "librarian/internal/clients"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

type operation struct {
	name    string
	failure string
}

var (
	opList   = operation{name: "books.list", failure: "failed to fetch books"}
	opGet    = operation{name: "books.get", failure: "failed to get book"}
	opCreate = operation{name: "books.create", failure: "failed to add book"}
	opUpdate = operation{name: "books.update", failure: "failed to update book"}
	opDelete = operation{name: "books.delete", failure: "failed to delete book"}
)

// BooksClient talks to the remote books API. Create, Update and Delete do
// not return the affected record: callers list again to observe it.
type BooksClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	tracer     trace.Tracer
	requests   metric.Int64Counter
	duration   metric.Float64Histogram
}

type options struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

type Option func(*options)

// WithHTTPClient replaces http.DefaultClient. Its timeout, if any, is the
// only timeout applied to API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithRateLimiter paces outgoing requests. A nil limiter means unlimited.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// NewBooksClient creates a client for the API rooted at baseURL.
func NewBooksClient(baseURL string, opts ...Option) *BooksClient {
	o := options{
		httpClient:     http.DefaultClient,
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(instrumentationName)

	requests, err := meter.Int64Counter(
		"librarian.books_api.requests",
		metric.WithDescription("Requests sent to the books API"),
	)
	if err != nil {
		otel.Handle(err)
		requests = noop.Int64Counter{}
	}

	duration, err := meter.Float64Histogram(
		"librarian.books_api.duration",
		metric.WithDescription("Duration of books API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		duration = noop.Float64Histogram{}
	}

	return &BooksClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		limiter:    o.limiter,
		logger:     o.logger,
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		requests:   requests,
		duration:   duration,
	}
}

// List fetches every book.
func (c *BooksClient) List(ctx context.Context) ([]books.Book, error) {
	var list []books.Book
	if err := c.do(ctx, opList, http.MethodGet, "/books", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []books.Book{}
	}
	return list, nil
}

// Get fetches a single book. A missing book yields an error matching ErrNotFound.
func (c *BooksClient) Get(ctx context.Context, id string) (books.Book, error) {
	var book books.Book
	if err := c.do(ctx, opGet, http.MethodGet, bookPath(id), nil, &book); err != nil {
		return books.Book{}, err
	}
	return book, nil
}

// Create submits a new book. Only the editable fields are sent.
func (c *BooksClient) Create(ctx context.Context, book books.Book) error {
	return c.do(ctx, opCreate, http.MethodPost, "/books", book.Draft(), nil)
}

func (c *BooksClient) Update(ctx context.Context, id string, book books.Book) error {
	book.ID = id
	return c.do(ctx, opUpdate, http.MethodPut, bookPath(id), book, nil)
}

func (c *BooksClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, opDelete, http.MethodDelete, bookPath(id), nil, nil)
}

func bookPath(id string) string {
	return "/books/" + url.PathEscape(id)
}

func (c *BooksClient) do(ctx context.Context, op operation, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, op.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	requestID := uuid.NewString()

	status, err := c.send(ctx, method, path, requestID, body, out)

	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op.name),
		attribute.String("outcome", outcome),
	)
	c.requests.Add(ctx, 1, attrs)
	c.duration.Record(ctx, elapsed.Seconds(), attrs)

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	if err != nil {
		apiErr := &Error{Op: op.name, StatusCode: status, Message: op.failure, Err: err}
		if status != 0 {
			apiErr = statusError(op.name, op.failure, status)
		}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Message)
		c.logger.WarnContext(ctx, "books api request failed",
			"op", op.name,
			"method", method,
			"path", path,
			"status", status,
			"request_id", requestID,
			"error", apiErr,
		)
		return apiErr
	}

	c.logger.DebugContext(ctx, "books api request",
		"op", op.name,
		"method", method,
		"path", path,
		"status", status,
		"request_id", requestID,
		"duration", elapsed,
	)
	return nil
}

// send performs one request. A non-zero status with a non-nil error means
// the API answered outside the 2xx range.
func (c *BooksClient) send(ctx context.Context, method, path, requestID string, body, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
