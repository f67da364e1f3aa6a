// Package metrics exposes prometheus counters for core mutations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeError  = "error"
)

type Recorder struct {
	paymentOps    *prometheus.CounterVec
	governanceOps *prometheus.CounterVec
}

// Module registers the recorder against the default prometheus registry.
var Module = fx.Module("observability.metrics",
	fx.Provide(NewDefault),
)

func NewDefault() *Recorder {
	return New(prometheus.DefaultRegisterer)
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		paymentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealerdesk_payment_operations_total",
			Help: "Payment mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		governanceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealerdesk_governance_operations_total",
			Help: "User governance mutations by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(r.paymentOps, r.governanceOps)
	return r
}

func (r *Recorder) ObservePaymentOp(operation, outcome string) {
	if r == nil {
		return
	}
	r.paymentOps.WithLabelValues(operation, outcome).Inc()
}

func (r *Recorder) ObserveGovernanceOp(action, outcome string) {
	if r == nil {
		return
	}
	r.governanceOps.WithLabelValues(action, outcome).Inc()
}
