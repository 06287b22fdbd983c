package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/mailbox/pkg/mailbox"
)

// MessageService is the mailbox surface the transport layer depends on.
type MessageService interface {
	Submit(ctx context.Context, msg *mailbox.Message) error
	Retrieve(ctx context.Context, org, consumerID string, filter mailbox.NotificationType) (*mailbox.Message, error)
}

// Handler exposes the mailbox engine over HTTP.
type Handler struct {
	svc    MessageService
	logger *slog.Logger
	checks []func(context.Context) error
}

// Option configures the Handler
type Option func(*Handler)

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHealthcheck adds a readiness probe to the /health endpoint.
func WithHealthcheck(check func(context.Context) error) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks = append(h.checks, check)
		}
	}
}

// NewHandler creates the HTTP transport for the given mailbox service.
func NewHandler(svc MessageService, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("message service cannot be nil")
	}

	h := &Handler{
		svc:    svc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Router builds the chi router for the mailbox API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.correlate)

	r.Post("/messages", h.submitMessage)
	r.Get("/messages", h.retrieveMessage)
	r.Get("/health", h.health)

	return r
}

// submitRequest is the wire shape of an inbound message.
type submitRequest struct {
	Organization     string     `json:"organization"`
	Priority         string     `json:"priority"`
	NotificationType string     `json:"notificationType"`
	Payload          string     `json:"payload"`
	ExpiresAt        *time.Time `json:"expiresAt"`
}

func (h *Handler) submitMessage(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The organization may arrive in the body or as a header.
	if req.Organization == "" {
		req.Organization = r.Header.Get(headerOrganization)
	}

	msg := &mailbox.Message{
		Organization: req.Organization,
		Payload:      req.Payload,
	}
	if req.ExpiresAt != nil {
		msg.ExpiresAt = *req.ExpiresAt
	}

	if req.Priority != "" {
		priority, err := mailbox.ParsePriority(req.Priority)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		msg.Priority = priority
	}
	if req.NotificationType != "" {
		notifType, err := mailbox.ParseNotificationType(req.NotificationType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		msg.NotificationType = notifType
	}

	if err := h.svc.Submit(r.Context(), msg); err != nil {
		switch {
		case errors.Is(err, mailbox.ErrInvalidPayload):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInsufficientStorage, "message add failed")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) retrieveMessage(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization")
	if org == "" {
		org = r.Header.Get(headerOrganization)
	}

	filter := mailbox.TypeAll
	if raw := r.URL.Query().Get("notificationType"); raw != "" {
		parsed, err := mailbox.ParseNotificationType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = parsed
	}

	msg, err := h.svc.Retrieve(r.Context(), org, consumerID(r), filter)
	if err != nil {
		switch {
		case errors.Is(err, mailbox.ErrNoMessage):
			writeError(w, http.StatusNotFound, "no message matching provided criteria was found")
		case errors.Is(err, mailbox.ErrUnknownNotificationType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "message retrieval failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "healthcheck failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
