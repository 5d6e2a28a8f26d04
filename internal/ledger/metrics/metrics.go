// Package metrics provides observability for the balance ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so tests can skip wiring it.
type Metrics struct {
	// Transfer attempts by resulting restriction code ("0" is success).
	TransferOutcome *prometheus.CounterVec

	// Supply mutations.
	Minted prometheus.Counter
	Burned prometheus.Counter

	// Snapshots taken.
	Snapshots prometheus.Counter
}

// New creates and registers all ledger metrics.
func New() *Metrics {
	return &Metrics{
		TransferOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_transfer_outcomes_total",
			Help: "Transfer attempts by restriction code (0 is success)",
		}, []string{"code"}),

		Minted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_minted_units_total",
			Help: "Total units minted",
		}),

		Burned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_burned_units_total",
			Help: "Total units burned",
		}),

		Snapshots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_snapshots_total",
			Help: "Snapshots taken",
		}),
	}
}

// IncTransferOutcome records a transfer attempt classified by code.
func (m *Metrics) IncTransferOutcome(code string) {
	if m != nil {
		m.TransferOutcome.WithLabelValues(code).Inc()
	}
}

// AddMinted records minted units.
func (m *Metrics) AddMinted(amount uint64) {
	if m != nil {
		m.Minted.Add(float64(amount))
	}
}

// AddBurned records burned units.
func (m *Metrics) AddBurned(amount uint64) {
	if m != nil {
		m.Burned.Add(float64(amount))
	}
}

// IncSnapshots records a snapshot.
func (m *Metrics) IncSnapshots() {
	if m != nil {
		m.Snapshots.Inc()
	}
}
