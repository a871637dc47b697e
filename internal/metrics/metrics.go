// Package metrics exposes Prometheus collectors for the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groovelink_build_info",
			Help: "Build information for the groovelink bridge",
		},
		[]string{"version", "sha", "date"},
	)

	deviceConnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groovelink_device_connects_total",
			Help: "Total number of device connections accepted",
		},
	)

	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groovelink_calls_total",
			Help: "Total number of relayed calls by outcome",
		},
		[]string{"outcome"},
	)

	callsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groovelink_calls_inflight",
			Help: "Number of relayed calls currently awaiting a device response",
		},
	)

	notificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groovelink_notifications_total",
			Help: "Total number of progress notifications forwarded to operators",
		},
	)

	operatorConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "groovelink_operator_connections",
			Help: "Number of operator connections currently open",
		},
	)
)

// NewRegistry builds the bridge's private registry with all collectors
// plus the standard process and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		buildInfo, deviceConnectsTotal, callsTotal, callsInflight,
		notificationsTotal, operatorConnections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// SetBuildInfo records the build identity gauge.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(version, sha, date).Set(1)
}

// DeviceConnected counts an accepted device connection.
func DeviceConnected() { deviceConnectsTotal.Inc() }

// CallStart marks a relayed call in flight.
func CallStart() { callsInflight.Inc() }

// CallEnd marks a relayed call finished with the given outcome
// ("ok" or "error").
func CallEnd(outcome string) {
	callsInflight.Dec()
	callsTotal.WithLabelValues(outcome).Inc()
}

// NotificationForwarded counts one progress notification sent to an
// operator.
func NotificationForwarded() { notificationsTotal.Inc() }

// OperatorConnected tracks operator connection lifecycle.
func OperatorConnected()    { operatorConnections.Inc() }
func OperatorDisconnected() { operatorConnections.Dec() }
