package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business metrics, registered on the default registry and exposed on
// /metrics together with the HTTP collectors.
var (
	messagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msglogger_messages_ingested_total",
		Help: "Group messages appended to the store.",
	})

	appendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msglogger_append_failures_total",
		Help: "Group messages dropped because the store rejected the append.",
	})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msglogger_exports_total",
		Help: "Export queries by outcome (ok, empty, invalid, error).",
	}, []string{"outcome"})

	exportRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msglogger_export_rows",
		Help:    "Number of messages returned per successful export.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1..262144
	})
)
