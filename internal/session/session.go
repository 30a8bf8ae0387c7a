package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hasan-mia/techstore-ui/internal/domain"
)

// Session is the hydrated cart and wishlist of one shopper. Mutations are
// written through to storage before they return. A Session serves a single
// request and is not safe for concurrent use.
type Session struct {
	id       string
	provider *Provider
	cart     *domain.Cart
	wishlist *domain.Wishlist
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// AddItem adds quantity units of product to the cart. It reports false, and
// leaves the cart untouched, when quantity is below one or the resulting line
// would exceed product.Stock.
func (s *Session) AddItem(ctx context.Context, product domain.Product, quantity int) (applied bool, err error) {
	ctx, end := s.provider.startSpan(ctx, "AddItem", s.id)
	defer func() { end(err) }()

	if !s.cart.AddItem(product, quantity) {
		recordMutation(engineCart, "add", resultRejected)
		s.provider.logger.InfoContext(ctx, "add to cart rejected",
			slog.String("session_id", s.id),
			slog.String("product_id", product.ID),
			slog.Int("quantity", quantity),
			slog.Int("in_cart", s.cart.ItemQuantity(product.ID)),
			slog.Int("stock", product.Stock),
		)
		return false, nil
	}

	if err := s.saveCart(ctx, "add"); err != nil {
		return false, err
	}

	s.provider.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", s.id),
		slog.String("product_id", product.ID),
		slog.Int("quantity", quantity),
	)
	return true, nil
}

// RemoveItem deletes the line for productID. Removing an absent product is a
// no-op and does not touch storage.
func (s *Session) RemoveItem(ctx context.Context, productID string) (err error) {
	ctx, end := s.provider.startSpan(ctx, "RemoveItem", s.id)
	defer func() { end(err) }()

	if !s.cart.IsInCart(productID) {
		recordMutation(engineCart, "remove", resultNoop)
		return nil
	}
	s.cart.RemoveItem(productID)

	if err := s.saveCart(ctx, "remove"); err != nil {
		return err
	}

	s.provider.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", s.id),
		slog.String("product_id", productID),
	)
	return nil
}

// UpdateQuantity sets the quantity of the line for productID; zero or less
// removes it. Stock is not checked here.
func (s *Session) UpdateQuantity(ctx context.Context, productID string, quantity int) (err error) {
	ctx, end := s.provider.startSpan(ctx, "UpdateQuantity", s.id)
	defer func() { end(err) }()

	if !s.cart.IsInCart(productID) {
		recordMutation(engineCart, "update", resultNoop)
		return nil
	}
	s.cart.UpdateQuantity(productID, quantity)

	if err := s.saveCart(ctx, "update"); err != nil {
		return err
	}

	s.provider.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", s.id),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// ClearCart empties the cart.
func (s *Session) ClearCart(ctx context.Context) (err error) {
	ctx, end := s.provider.startSpan(ctx, "ClearCart", s.id)
	defer func() { end(err) }()

	s.cart.Clear()
	if err := s.provider.store.Save(ctx, CartKey(s.id), s.cart.Lines()); err != nil {
		recordMutation(engineCart, "clear", resultError)
		return fmt.Errorf("persist cart: %w", err)
	}
	recordMutation(engineCart, "clear", resultApplied)

	if err := s.provider.events.PublishCartCleared(ctx, s.id); err != nil {
		s.provider.logPublishFailure(ctx, "cart.cleared", s.id, err)
	}
	s.provider.logger.InfoContext(ctx, "cart cleared", slog.String("session_id", s.id))
	return nil
}

// IsInCart reports whether the cart holds productID.
func (s *Session) IsInCart(productID string) bool { return s.cart.IsInCart(productID) }

// ItemQuantity returns the quantity of productID in the cart, or 0.
func (s *Session) ItemQuantity(productID string) int { return s.cart.ItemQuantity(productID) }

// Total returns the cart total in minor currency units.
func (s *Session) Total() int64 { return s.cart.Total() }

// Count returns the number of units in the cart.
func (s *Session) Count() int { return s.cart.Count() }

// Lines returns a copy of the cart lines.
func (s *Session) Lines() []domain.CartLine { return s.cart.Lines() }

// ToggleWishlist flips productID in the wishlist and reports whether it is
// saved afterwards.
func (s *Session) ToggleWishlist(ctx context.Context, productID string) (saved bool, err error) {
	ctx, end := s.provider.startSpan(ctx, "ToggleWishlist", s.id)
	defer func() { end(err) }()

	s.wishlist.Toggle(productID)
	saved = s.wishlist.Contains(productID)

	if err := s.provider.store.Save(ctx, WishlistKey(s.id), s.wishlist.IDs()); err != nil {
		recordMutation(engineWishlist, "toggle", resultError)
		return false, fmt.Errorf("persist wishlist: %w", err)
	}
	recordMutation(engineWishlist, "toggle", resultApplied)

	if err := s.provider.events.PublishWishlistUpdated(ctx, s.id, s.wishlist); err != nil {
		s.provider.logPublishFailure(ctx, "wishlist.updated", s.id, err)
	}
	s.provider.logger.InfoContext(ctx, "wishlist toggled",
		slog.String("session_id", s.id),
		slog.String("product_id", productID),
		slog.Bool("saved", saved),
	)
	return saved, nil
}

// IsInWishlist reports whether productID is saved.
func (s *Session) IsInWishlist(productID string) bool { return s.wishlist.Contains(productID) }

// WishlistCount returns the number of saved products.
func (s *Session) WishlistCount() int { return s.wishlist.Count() }

// WishlistIDs returns a copy of the saved product ids.
func (s *Session) WishlistIDs() []string { return s.wishlist.IDs() }

// saveCart persists the cart after a mutation and announces the new state.
func (s *Session) saveCart(ctx context.Context, op string) error {
	if err := s.provider.store.Save(ctx, CartKey(s.id), s.cart.Lines()); err != nil {
		recordMutation(engineCart, op, resultError)
		return fmt.Errorf("persist cart: %w", err)
	}
	recordMutation(engineCart, op, resultApplied)

	if err := s.provider.events.PublishCartUpdated(ctx, s.id, s.cart); err != nil {
		s.provider.logPublishFailure(ctx, "cart.updated", s.id, err)
	}
	return nil
}
