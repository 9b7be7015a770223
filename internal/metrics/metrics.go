package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "obavg"

var (
	SourceUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_up",
		Help:      "1 while the market stream read loop is running.",
	})
	FramesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_published_total",
		Help:      "Frames read from the market stream and published to the fan-out bus.",
	})
	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Frames skipped by lagging consumers.",
	})
	FramesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_skipped_total",
		Help:      "Frames ignored by the aggregator, by reason.",
	}, []string{"reason"}) // malformed / ack / other_stream

	ActiveQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_queries",
		Help:      "Queries currently scanning the stream.",
	})
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Average price queries by outcome.",
	}, []string{"outcome"})
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Time from query start until a matching frame was reduced or the query failed.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms ~ 80s
	}, []string{"outcome"})

	JournalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_errors_total",
		Help:      "Failed writes to the result journal.",
	})
)
