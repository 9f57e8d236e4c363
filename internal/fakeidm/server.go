// Package fakeidm is an in-memory stand-in for the vendor identity API. It
// serves the subset of endpoints the client uses, with the same wire shapes,
// and records every request it receives.
package fakeidm

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/fivetwenty-io/idm-client/internal/constants"
)

const (
	DefaultClientID = "fake-client-id"
	DefaultSecret   = "fake-secret"
)

// RecordedRequest is one request seen by the service.
type RecordedRequest struct {
	Method   string
	Path     string
	Query    string
	TenantID string
	Body     []byte
}

type failure struct {
	status int
	body   string
}

// Service holds the fake's state. All methods are safe for concurrent use.
type Service struct {
	mu sync.Mutex

	clientID   string
	secret     string
	expiresIn  int
	textMeta   bool
	strictKeys bool
	now        func() time.Time

	tokens      map[string]bool
	authCalls   int
	tenants     map[uuid.UUID]*tenantRecord
	tenantOrder []uuid.UUID
	users       map[uuid.UUID]*userRecord
	userOrder   []uuid.UUID
	requests    []RecordedRequest
	failures    []failure
}

// Option configures a Service.
type Option func(*Service)

// WithCredentials sets the accepted client ID and secret.
func WithCredentials(clientID, secret string) Option {
	return func(s *Service) {
		s.clientID = clientID
		s.secret = secret
	}
}

// WithTokenLifetime sets expiresIn, in seconds, for issued tokens.
func WithTokenLifetime(seconds int) Option {
	return func(s *Service) {
		s.expiresIn = seconds
	}
}

// WithTextMetadata controls whether object and array metadata is returned as
// JSON text inside a string, the way the real service stores it. Enabled by
// default.
func WithTextMetadata(enabled bool) Option {
	return func(s *Service) {
		s.textMeta = enabled
	}
}

// WithStrictMetadataKeys makes deleting a metadata key that is not present
// answer 404 instead of returning the unchanged tenant.
func WithStrictMetadataKeys(enabled bool) Option {
	return func(s *Service) {
		s.strictKeys = enabled
	}
}

// New creates an empty service.
func New(opts ...Option) *Service {
	s := &Service{
		clientID:  DefaultClientID,
		secret:    DefaultSecret,
		expiresIn: 3600,
		textMeta:  true,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		tokens:    map[string]bool{},
		tenants:   map[uuid.UUID]*tenantRecord{},
		users:     map[uuid.UUID]*userRecord{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewServer starts s on a local httptest server.
func NewServer(opts ...Option) (*Service, *httptest.Server) {
	s := New(opts...)

	return s, httptest.NewServer(s.Handler())
}

// Handler returns the HTTP handler for the service.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Post(constants.AuthVendorPath, s.handleAuth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.injectFailures)

		r.Route(constants.TenantsPath, func(r chi.Router) {
			r.Get("/", s.handleListTenants)
			r.Post("/", s.handleCreateTenant)
			r.Get("/{id}", s.handleGetTenant)
			r.Delete("/{id}", s.handleDeleteTenant)
			r.Post("/{id}/metadata", s.handleSetTenantMetadata)
			r.Delete("/{id}/metadata/{key}", s.handleDeleteTenantMetadata)
		})
		r.Get(constants.TenantsPagedPath, s.handlePageTenants)

		r.Route(constants.UsersPath, func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})
		r.Get(constants.VendorOnlyUserPath+"/{id}", s.handleGetUser)
	})

	return r
}

// Requests returns the requests received so far, oldest first.
func (s *Service) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// RequestCount returns how many requests were received, including auth.
func (s *Service) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// AuthCount returns how many credential exchanges were attempted.
func (s *Service) AuthCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authCalls
}

// RevokeTokens invalidates every issued token, so the next API call is
// answered with 401.
func (s *Service) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = map[string]bool{}
}

// FailNext makes the next n authenticated requests fail with status and body.
func (s *Service) FailNext(n int, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range n {
		s.failures = append(s.failures, failure{status: status, body: body})
	}
}

// Reset drops all tenants, users, tokens and recorded requests.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = map[string]bool{}
	s.authCalls = 0
	s.tenants = map[uuid.UUID]*tenantRecord{}
	s.tenantOrder = nil
	s.users = map[uuid.UUID]*userRecord{}
	s.userOrder = nil
	s.requests = nil
	s.failures = nil
}

type authRequest struct {
	ClientID string `json:"clientId"`
	Secret   string `json:"secret"`
}

func (s *Service) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authCalls++

	if req.ClientID != s.clientID || req.Secret != s.secret {
		writeError(w, http.StatusUnauthorized, "Unauthorized")

		return
	}

	token := newToken()
	s.tokens[token] = true

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresIn": s.expiresIn,
	})
}

func (s *Service) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, r := readBody(r)

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			Query:    r.URL.RawQuery,
			TenantID: r.Header.Get(constants.TenantIDHeader),
			Body:     body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Service) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		valid := ok && s.tokens[token]
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "Unauthorized")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()

		var f *failure

		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}

		s.mu.Unlock()

		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))

			return
		}

		next.ServeHTTP(w, r)
	})
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}
