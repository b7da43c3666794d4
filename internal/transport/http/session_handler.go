package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "poscope/internal/errors"
	"poscope/internal/infrastructure"
)

// SessionHandler creates and reports analysis sessions and hosts the
// session-scoped resources
type SessionHandler struct {
	service      SessionServiceInterface
	resources    []sessionResource
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

type sessionResource struct {
	pattern string
	handler http.Handler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service SessionServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
	}
}

// Mount attaches a resource below /{sessionID}
func (h *SessionHandler) Mount(pattern string, handler http.Handler) *SessionHandler {
	h.resources = append(h.resources, sessionResource{pattern: pattern, handler: handler})
	return h
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(render.SetContentType(render.ContentTypeJSON)).Post("/", h.Create)

	r.Route("/{"+sessionIDParam+"}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.Get)
		r.With(render.SetContentType(render.ContentTypeJSON)).Delete("/", h.Delete)
		for _, res := range h.resources {
			r.Mount(res.pattern, res.handler)
		}
	})
	return r
}

// SessionCtx validates the session id and carries it in the request context
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if id == "" || len(id) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(sessionIDParam, "セッションIDが正しくありません"))
			return
		}
		ctx := infrastructure.WithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Create(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", summary.ID),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// Get handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Get(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// Delete handles DELETE /api/v1/sessions/{sessionID}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
