package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReservationMetrics counts reservation-path API calls by outcome.
type ReservationMetrics struct {
	calls *prometheus.CounterVec
}

// NewReservationMetrics registers the reservation call counters.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_calls_total",
		Help: "Reservation API calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(calls)
	return &ReservationMetrics{calls: calls}
}

// IncCall increments the counter for the given operation/outcome pair.
func (r *ReservationMetrics) IncCall(operation, outcome string) {
	if r == nil || r.calls == nil {
		return
	}
	r.calls.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
