package domain

// Wishlist is an insertion-ordered set of saved product ids. It is not safe
// for concurrent use.
type Wishlist struct {
	ids []string
}

// NewWishlist returns an empty wishlist.
func NewWishlist() *Wishlist {
	return &Wishlist{}
}

// RestoreWishlist builds a wishlist from persisted ids, dropping empty and
// repeated entries.
func RestoreWishlist(ids []string) *Wishlist {
	w := NewWishlist()
	for _, id := range ids {
		if id == "" || w.Contains(id) {
			continue
		}
		w.ids = append(w.ids, id)
	}
	return w
}

// Toggle removes productID if present, otherwise adds it.
func (w *Wishlist) Toggle(productID string) {
	for i, id := range w.ids {
		if id == productID {
			w.ids = append(w.ids[:i], w.ids[i+1:]...)
			return
		}
	}
	w.ids = append(w.ids, productID)
}

// Contains reports whether productID is saved.
func (w *Wishlist) Contains(productID string) bool {
	for _, id := range w.ids {
		if id == productID {
			return true
		}
	}
	return false
}

// Count returns the number of saved products.
func (w *Wishlist) Count() int {
	return len(w.ids)
}

// IDs returns a copy of the saved product ids.
func (w *Wishlist) IDs() []string {
	out := make([]string, len(w.ids))
	copy(out, w.ids)
	return out
}
