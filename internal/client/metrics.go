package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_gateway_requests_total",
			Help: "Total number of catalog gateway requests by resource, method and outcome",
		},
		[]string{"resource", "method", "outcome"},
	)

	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_gateway_request_duration_seconds",
			Help:    "Catalog gateway request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "method"},
	)

	gatewayBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_gateway_circuit_breaker_state",
			Help: "Current state of the gateway circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(gatewayRequestsTotal)
	prometheus.MustRegister(gatewayRequestDuration)
	prometheus.MustRegister(gatewayBreakerState)
}

const (
	outcomeSuccess     = "success"
	outcomeClientError = "client_error"
	outcomeServerError = "server_error"
	outcomeNetwork     = "network_error"
	outcomeRejected    = "rejected"
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
