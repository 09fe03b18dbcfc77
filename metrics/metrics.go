// Package metrics counts transaction outcomes and host health on a registry owned by the caller.
package metrics

import (
	"bufio"
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gonka_wallet"

// Host attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	registry *prometheus.Registry

	txOutcomes   *prometheus.CounterVec
	hostAttempts *prometheus.CounterVec
	hostPriority *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		txOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_outcomes_total",
			Help:      "Transactions that reached a terminal status, by operation.",
		}, []string{"operation", "status"}),
		hostAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_attempts_total",
			Help:      "Requests made to node hosts, by port and outcome.",
		}, []string{"port", "outcome"}),
		hostPriority: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_priority",
			Help:      "Current priority of each node host.",
		}, []string{"port", "host"}),
	}

	m.registry.MustRegister(m.txOutcomes, m.hostAttempts, m.hostPriority)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTxOutcome(operation, status string) {
	if m == nil {
		return
	}
	m.txOutcomes.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) ObserveHostAttempt(port string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	m.hostAttempts.WithLabelValues(port, outcome).Inc()
}

func (m *Metrics) SetHostPriority(port, host string, priority int) {
	if m == nil {
		return
	}
	m.hostPriority.WithLabelValues(port, host).Set(float64(priority))
}

// Dump writes every gathered metric family, one per line.
func (m *Metrics) Dump(w io.Writer) error {
	if m == nil {
		return nil
	}

	metricFamilies, err := m.registry.Gather()
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(w)
	for _, family := range metricFamilies {
		if _, err := writer.WriteString(family.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}
