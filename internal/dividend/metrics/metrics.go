// Package metrics provides observability for the dividend ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dividend ledger's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	FundedUnits  prometheus.Counter
	ClaimedUnits prometheus.Counter
	SweptUnits   prometheus.Counter
	ClaimErrors  *prometheus.CounterVec
}

// New creates and registers all dividend metrics.
func New() *Metrics {
	return &Metrics{
		FundedUnits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_dividend_funded_units_total",
			Help: "External asset units received into dividend pools",
		}),
		ClaimedUnits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_dividend_claimed_units_total",
			Help: "External asset units paid out to holders",
		}),
		SweptUnits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tessera_dividend_swept_units_total",
			Help: "External asset units swept by admins",
		}),
		ClaimErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tessera_dividend_claim_errors_total",
			Help: "Failed claims by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) AddFunded(amount uint64) {
	if m != nil {
		m.FundedUnits.Add(float64(amount))
	}
}

func (m *Metrics) AddClaimed(amount uint64) {
	if m != nil {
		m.ClaimedUnits.Add(float64(amount))
	}
}

func (m *Metrics) AddSwept(amount uint64) {
	if m != nil {
		m.SweptUnits.Add(float64(amount))
	}
}

func (m *Metrics) IncClaimError(code string) {
	if m != nil {
		m.ClaimErrors.WithLabelValues(code).Inc()
	}
}
