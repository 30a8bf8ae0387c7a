package http

import (
	"log/slog"
	"net/http"

	apperrors "github.com/hasan-mia/techstore-ui/pkg/errors"
	"github.com/hasan-mia/techstore-ui/pkg/httputil"
	"github.com/hasan-mia/techstore-ui/pkg/middleware"
)

// SessionHandler handles the session lifecycle endpoints.
type SessionHandler struct {
	sessions SessionStore
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions SessionStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Logout handles POST /api/v1/session/logout. It drops the cart and wishlist
// of the calling session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.SessionIDFromContext(r.Context())
	if id == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("session required"), h.logger)
		return
	}

	if err := h.sessions.Purge(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
