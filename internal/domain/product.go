package domain

import "time"

// Product is a snapshot of catalog data as supplied by the product provider.
// The cart trusts Stock and Price at the moment of the call and never re-fetches them.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Image       string    `json:"image,omitempty"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Stock       int       `json:"stock"`
	Rating      float64   `json:"rating,omitempty"`
	Reviews     int       `json:"reviews,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}
