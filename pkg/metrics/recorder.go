// Package metrics counts what a collection run did and can dump the
// counters in Prometheus text format for a node exporter textfile
// collector. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ytmeta"

type Recorder struct {
	registry *prometheus.Registry

	apiRequests      *prometheus.CounterVec
	quotaExhaustions prometheus.Counter
	targets          *prometheus.CounterVec
	channelFetches   prometheus.Counter
	comments         prometheus.Counter
	translations     *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Data API calls issued, by endpoint.",
			},
			[]string{"endpoint"},
		),
		quotaExhaustions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_exhaustions_total",
				Help:      "API keys retired after a quota signal.",
			},
		),
		targets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "targets_total",
				Help:      "Targets resolved, by outcome.",
			},
			[]string{"outcome"},
		),
		channelFetches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_fetches_total",
				Help:      "Channel detail records fetched.",
			},
		),
		comments: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comments_total",
				Help:      "Comment records collected.",
			},
		),
		translations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translations_total",
				Help:      "Translation stage cells, by result.",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		r.apiRequests,
		r.quotaExhaustions,
		r.targets,
		r.channelFetches,
		r.comments,
		r.translations,
	)
	return r
}

func (r *Recorder) APIRequest(endpoint string) {
	if r == nil {
		return
	}
	r.apiRequests.WithLabelValues(endpoint).Inc()
}

func (r *Recorder) QuotaExhausted() {
	if r == nil {
		return
	}
	r.quotaExhaustions.Inc()
}

func (r *Recorder) TargetResolved(outcome string) {
	if r == nil {
		return
	}
	r.targets.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ChannelFetched() {
	if r == nil {
		return
	}
	r.channelFetches.Inc()
}

func (r *Recorder) CommentsCollected(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.comments.Add(float64(n))
}

func (r *Recorder) Translated(result string) {
	if r == nil {
		return
	}
	r.translations.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile atomically writes every counter to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
