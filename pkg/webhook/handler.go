package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

const (
	// SecretHeader carries the secret configured for the webhook.
	SecretHeader = "x-webhook-secret"

	// DefaultMaxBodyBytes bounds the size of a delivery.
	DefaultMaxBodyBytes = 1 << 20
)

// Func handles one decoded event.
type Func func(ctx context.Context, event *Event) error

// Handler serves webhook deliveries.
//
// Responses: 405 for anything but POST, 401 when a secret is configured and
// does not match, 413 for oversized bodies, 400 for bodies that do not
// decode, 500 when the Func fails, 204 otherwise.
type Handler struct {
	fn       Func
	secret   string
	maxBytes int64
	logger   idm.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSecret requires the secret header to equal secret.
func WithSecret(secret string) HandlerOption {
	return func(h *Handler) {
		h.secret = secret
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithLogger sets the logger used for rejected deliveries.
func WithLogger(logger idm.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler calling fn for each delivery.
func NewHandler(fn Func, opts ...HandlerOption) *Handler {
	h := &Handler{
		fn:       fn,
		maxBytes: DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

		return
	}

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		h.warn("Rejected webhook with bad secret", map[string]interface{}{"remote": r.RemoteAddr})
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)

			return
		}

		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		h.warn("Rejected undecodable webhook", map[string]interface{}{"error": err.Error()})
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	err = h.fn(r.Context(), event)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("Webhook handler failed", map[string]interface{}{
				"event": event.Key,
				"error": err.Error(),
			})
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) warn(msg string, fields map[string]interface{}) {
	if h.logger != nil {
		h.logger.Warn(msg, fields)
	}
}
