package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hasan-mia/techstore-ui/internal/catalog"
	"github.com/hasan-mia/techstore-ui/internal/domain"
	"github.com/hasan-mia/techstore-ui/internal/session"
	apperrors "github.com/hasan-mia/techstore-ui/pkg/errors"
	"github.com/hasan-mia/techstore-ui/pkg/httputil"
	"github.com/hasan-mia/techstore-ui/pkg/middleware"
	"github.com/hasan-mia/techstore-ui/pkg/validator"
)

const maxProductIDLen = 128

// SessionStore opens and purges shopper sessions.
type SessionStore interface {
	Open(ctx context.Context, sessionID string) (*session.Session, error)
	Purge(ctx context.Context, sessionID string) error
}

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	sessions SessionStore
	catalog  catalog.Provider
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(sessions SessionStore, products catalog.Provider, logger *slog.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, catalog: products, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=1000"`
}

// UpdateQuantityRequest is the JSON request body for setting a line quantity.
// Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=1000"`
}

// --- Response DTOs ---

// CartItemResponse is one cart line as returned to the storefront.
type CartItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Product   *domain.Product `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice int64           `json:"unit_price"`
	Subtotal  int64           `json:"subtotal"`
}

// CartResponse is the cart view returned by every cart endpoint.
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
	Count int                `json:"count"`
}

func cartView(s *session.Session) CartResponse {
	lines := s.Lines()
	items := make([]CartItemResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, CartItemResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Product:   l.Product,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}
	return CartResponse{Items: items, Total: s.Total(), Count: s.Count()}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.open(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cartView(s))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	s, err := h.open(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	applied, err := s.AddItem(r.Context(), *product, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !applied {
		requested := s.ItemQuantity(product.ID) + req.Quantity
		httputil.WriteError(w, r, apperrors.InsufficientStock(product.ID, requested, product.Stock), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, cartView(s))
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	quantity := *req.Quantity

	s, err := h.open(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// The cart itself does not check stock on update, so increases are checked
	// here against a fresh catalog snapshot. Decreases never need the catalog.
	if s.IsInCart(productID) && quantity > s.ItemQuantity(productID) {
		product, err := h.catalog.GetProduct(r.Context(), productID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if quantity > product.Stock {
			httputil.WriteError(w, r, apperrors.InsufficientStock(productID, quantity, product.Stock), h.logger)
			return
		}
	}

	if err := s.UpdateQuantity(r.Context(), productID, quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, cartView(s))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r, h.logger)
	if !ok {
		return
	}

	s, err := h.open(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := s.RemoveItem(r.Context(), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, cartView(s))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, err := h.open(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := s.ClearCart(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, cartView(s))
}

func (h *CartHandler) open(r *http.Request) (*session.Session, error) {
	return openSession(r, h.sessions)
}

func openSession(r *http.Request, sessions SessionStore) (*session.Session, error) {
	id := middleware.SessionIDFromContext(r.Context())
	if id == "" {
		return nil, apperrors.Unauthorized("session required")
	}
	return sessions.Open(r.Context(), id)
}

func productIDParam(w http.ResponseWriter, r *http.Request, l *slog.Logger) (string, bool) {
	id := chi.URLParam(r, "productId")
	if id == "" || len(id) > maxProductIDLen {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId is required and at most 128 characters"), l)
		return "", false
	}
	return id, true
}
