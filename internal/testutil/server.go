package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/domain/health"
	"github.com/autumndb/autumndb/domain/links"
	"github.com/autumndb/autumndb/domain/query"
	"github.com/autumndb/autumndb/domain/streams"
	"github.com/autumndb/autumndb/domain/typeregistry"
	"github.com/autumndb/autumndb/domain/useraccess"
	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/auth"
	"github.com/autumndb/autumndb/pkg/cache"
)

// TestServer wraps an Echo instance for testing.
type TestServer struct {
	Echo           *echo.Echo
	TestDB         *TestDB
	DB             bun.IDB
	Config         *config.Config
	Log            *slog.Logger
	AuthMiddleware *auth.Middleware
	Store          contracts.Store
	Cache          *cache.Cache
	Registry       *typeregistry.Registry
	Masker         useraccess.Masker
	Materializer   *links.Materializer
	Matcher        *streams.Matcher
	Wirer          *streams.Wirer
}

// NewTestServer creates a test server with all routes registered.
func NewTestServer(testDB *TestDB) *TestServer {
	return newTestServerWithDB(testDB, testDB.GetDB())
}

// newTestServerWithDB creates a test server with a specific DB connection,
// wiring the same collaborators cmd/server/main.go wires via fx, but by
// hand so tests can reach inside without a DI container.
func newTestServerWithDB(testDB *TestDB, db bun.IDB) *TestServer {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)

	authMiddleware := auth.NewMiddleware(testDB.Config, log)

	store := contracts.NewStore(db, log)
	masker := useraccess.NewMasker(db, log)
	registry := typeregistry.NewRegistry(store, log)
	materializer := links.NewMaterializer(db, nil, log)
	matcher := streams.NewMatcher(testDB.Config, log)
	wirer := streams.NewWirer(db, testDB.Config, log)

	contractCache := cache.New(store, cache.Config{
		MaxEntries: testDB.Config.Cache.MaxEntries,
		TTL:        testDB.Config.Cache.TTL,
	}, log)

	healthHandler := health.NewHandler(testDB.Pool, testDB.Config)
	metricsHandler := health.NewMetricsHandler(matcher)
	health.RegisterRoutes(e, healthHandler, metricsHandler)

	querySvc := query.NewService(db, masker, testDB.Config, log)
	queryHandler := query.NewHandler(querySvc)
	query.RegisterRoutes(e, queryHandler, authMiddleware)

	streamHandler := streams.NewHandler(matcher, wirer, masker, testDB.Config, log)
	streams.RegisterRoutes(e, streamHandler, authMiddleware)

	return &TestServer{
		Echo:           e,
		TestDB:         testDB,
		DB:             db,
		Config:         testDB.Config,
		Log:            log,
		AuthMiddleware: authMiddleware,
		Store:          store,
		Cache:          contractCache,
		Registry:       registry,
		Masker:         masker,
		Materializer:   materializer,
		Matcher:        matcher,
		Wirer:          wirer,
	}
}

// Request performs an HTTP request against the test server.
func (s *TestServer) Request(method, path string, opts ...RequestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)

	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// GET performs a GET request.
func (s *TestServer) GET(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodGet, path, opts...)
}

// POST performs a POST request.
func (s *TestServer) POST(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPost, path, opts...)
}

// PUT performs a PUT request.
func (s *TestServer) PUT(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPut, path, opts...)
}

// DELETE performs a DELETE request.
func (s *TestServer) DELETE(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodDelete, path, opts...)
}

// PATCH performs a PATCH request.
func (s *TestServer) PATCH(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPatch, path, opts...)
}

// RequestOption modifies an HTTP request.
type RequestOption func(*http.Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithAuth adds an Authorization header.
func WithAuth(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithJSON adds a Content-Type: application/json header.
func WithJSON() RequestOption {
	return WithHeader("Content-Type", "application/json")
}

// WithBody adds a request body.
func WithBody(body string) RequestOption {
	return func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader(body))
		r.ContentLength = int64(len(body))
	}
}

// WithRawAuth adds a raw Authorization header value.
func WithRawAuth(value string) RequestOption {
	return WithHeader("Authorization", value)
}

// WithJSONBody sets Content-Type to application/json and marshals the body to JSON.
func WithJSONBody(body any) RequestOption {
	return func(r *http.Request) {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Body = io.NopCloser(strings.NewReader(string(data)))
		r.ContentLength = int64(len(data))
	}
}

// MultipartForm represents a multipart form for testing file uploads.
type MultipartForm struct {
	body        *bytes.Buffer
	writer      *multipart.Writer
	contentType string
}

// NewMultipartForm creates a new multipart form builder.
func NewMultipartForm() *MultipartForm {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	return &MultipartForm{
		body:   body,
		writer: writer,
	}
}

// AddFile adds a file to the multipart form.
func (m *MultipartForm) AddFile(fieldName, filename string, content []byte) error {
	part, err := m.writer.CreateFormFile(fieldName, filename)
	if err != nil {
		return err
	}
	_, err = part.Write(content)
	return err
}

// AddField adds a regular field to the multipart form.
func (m *MultipartForm) AddField(fieldName, value string) error {
	return m.writer.WriteField(fieldName, value)
}

// Close finalizes the multipart form and returns the content type.
func (m *MultipartForm) Close() string {
	m.writer.Close()
	m.contentType = m.writer.FormDataContentType()
	return m.contentType
}

// WithMultipartForm adds a multipart form body to the request.
func WithMultipartForm(form *MultipartForm) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", form.contentType)
		r.Body = io.NopCloser(bytes.NewReader(form.body.Bytes()))
		r.ContentLength = int64(form.body.Len())
	}
}
