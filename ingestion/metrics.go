package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the indexer's prometheus counters.
type Metrics struct {
	Ingested     *prometheus.CounterVec
	Skipped      prometheus.Counter
	EmbedRetries prometheus.Counter
	Queued       prometheus.Counter
}

// NewMetrics registers the ingestion counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ingested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govchat_ingested_total",
				Help: "Total number of program records upserted into the index",
			},
			[]string{"source"},
		),
		Skipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "govchat_ingest_skipped_total",
				Help: "Total number of malformed source items skipped",
			},
		),
		EmbedRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "govchat_embed_retries_total",
				Help: "Total number of embedding attempts retried",
			},
		),
		Queued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "govchat_retry_queued_total",
				Help: "Total number of records queued for a later embedding",
			},
		),
	}
}
