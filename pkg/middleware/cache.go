package middleware

import "net/http"

// NoStore marks responses as private and uncacheable. Cart and wishlist
// payloads are per-shopper and must never be served from a shared cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, no-store")
		w.Header().Add("Vary", "Authorization")
		w.Header().Add("Vary", SessionHeader)
		next.ServeHTTP(w, r)
	})
}
