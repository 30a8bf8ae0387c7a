package http

import (
	"log/slog"
	"net/http"

	"github.com/hasan-mia/techstore-ui/pkg/httputil"
)

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	sessions SessionStore
	logger   *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(sessions SessionStore, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{sessions: sessions, logger: logger}
}

// WishlistResponse lists saved product ids, oldest first.
type WishlistResponse struct {
	ProductIDs []string `json:"product_ids"`
	Count      int      `json:"count"`
}

// ToggleResponse reports membership after a toggle.
type ToggleResponse struct {
	InWishlist bool `json:"in_wishlist"`
	Count      int  `json:"count"`
}

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s, err := openSession(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, WishlistResponse{ProductIDs: s.WishlistIDs(), Count: s.WishlistCount()})
}

// Toggle handles POST /api/v1/wishlist/{productId}/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r, h.logger)
	if !ok {
		return
	}

	s, err := openSession(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	saved, err := s.ToggleWishlist(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, ToggleResponse{InWishlist: saved, Count: s.WishlistCount()})
}
