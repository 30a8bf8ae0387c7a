package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	engineCart     = "cart"
	engineWishlist = "wishlist"
	engineSession  = "session"

	resultApplied  = "applied"
	resultRejected = "rejected"
	resultNoop     = "noop"
	resultError    = "error"
)

var mutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_session_mutations_total",
		Help: "Total number of cart and wishlist mutations by outcome",
	},
	[]string{"engine", "op", "result"},
)

func recordMutation(engine, op, result string) {
	mutationsTotal.WithLabelValues(engine, op, result).Inc()
}
