// internal/txmon/metrics.go
package txmon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	pollCounter       prometheus.Counter
	confirmedCounter  prometheus.Counter
	failedCounter     prometheus.Counter
	timeoutCounter    prometheus.Counter
	durationHistogram prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	pollCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_tx_polls_total",
		Help: "Total number of transaction status polls",
	})
	confirmedCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_tx_confirmed_total",
		Help: "Total number of transactions confirmed",
	})
	failedCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_tx_failed_total",
		Help: "Total number of transactions failed on the ledger",
	})
	timeoutCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "launchpad_tx_timeout_total",
		Help: "Total number of monitoring sessions that timed out",
	})
	durationHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "launchpad_tx_confirmation_seconds",
		Help:    "Time from monitoring start to terminal status in seconds",
		Buckets: prometheus.LinearBuckets(0, 5, 12),
	})

	if reg != nil {
		reg.MustRegister(pollCounter, confirmedCounter, failedCounter, timeoutCounter, durationHistogram)
	}

	return &Metrics{
		pollCounter:       pollCounter,
		confirmedCounter:  confirmedCounter,
		failedCounter:     failedCounter,
		timeoutCounter:    timeoutCounter,
		durationHistogram: durationHistogram,
	}
}

func (m *Metrics) trackTerminal(status Status, start time.Time) {
	m.durationHistogram.Observe(time.Since(start).Seconds())
	switch status {
	case StatusSuccess:
		m.confirmedCounter.Inc()
	case StatusFailed:
		m.failedCounter.Inc()
	case StatusTimeout:
		m.timeoutCounter.Inc()
	}
}
