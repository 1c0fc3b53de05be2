package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics for the number lifecycle pipeline.
type Metrics struct {
	// Provisioning metrics
	NumbersPurchased     prometheus.Counter
	ProvisionFailures    *prometheus.CounterVec
	ProvisionCompensated prometheus.Counter

	// Release metrics
	NumbersReleased prometheus.Counter
	ReleaseFailures prometheus.Counter

	// Call / recording metrics
	InboundCalls       *prometheus.CounterVec
	RecordingsIngested prometheus.Counter
	RecordingsLost     prometheus.Counter
	RecordingBytes     prometheus.Counter

	// Carrier API metrics
	CarrierRequests *prometheus.CounterVec
	CarrierLatency  *prometheus.HistogramVec
}

// New creates and registers all application metrics under a namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		NumbersPurchased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbers_purchased_total",
			Help:      "Total number of phone numbers purchased from the carrier",
		}),
		ProvisionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_failures_total",
			Help:      "Total number of failed provisioning attempts",
		}, []string{"reason"}),
		ProvisionCompensated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_compensations_total",
			Help:      "Total number of purchased numbers released after a failed persist",
		}),
		NumbersReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbers_released_total",
			Help:      "Total number of phone numbers released back to the carrier",
		}),
		ReleaseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "release_failures_total",
			Help:      "Total number of failed release attempts",
		}),
		InboundCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_calls_total",
			Help:      "Total number of inbound calls routed, by outcome",
		}, []string{"outcome"}),
		RecordingsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_ingested_total",
			Help:      "Total number of recordings persisted to durable storage",
		}),
		RecordingsLost: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_lost_total",
			Help:      "Total number of recordings that failed ingestion and are at risk of loss",
		}),
		RecordingBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recording_bytes_total",
			Help:      "Total bytes of recording audio persisted",
		}),
		CarrierRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carrier_requests_total",
			Help:      "Total number of carrier API requests",
		}, []string{"operation", "status"}),
		CarrierLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "carrier_request_duration_seconds",
			Help:      "Duration of carrier API requests",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}
