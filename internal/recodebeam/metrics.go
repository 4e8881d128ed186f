package recodebeam

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decodesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recode_beam_decodes_total",
			Help: "Total number of beam search decodes",
		},
	)

	decodeTimesteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recode_beam_timesteps",
			Help:    "Number of timesteps per decoded line",
			Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
	)

	decodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recode_beam_decode_duration_seconds",
			Help:    "Beam search duration per line in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	nodesPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recode_beam_nodes_pushed_total",
			Help: "Total number of hypotheses pushed onto beam heaps",
		},
	)

	dictionaryProbes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recode_beam_dictionary_probes_total",
			Help: "Total number of dictionary letter queries",
		},
	)

	tierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recode_beam_tier_fallbacks_total",
			Help: "Total number of timesteps widened past the top tier",
		},
	)
)

// decodeStats counts locally during a decode and is published once at the
// end, keeping atomic updates out of the inner loop.
type decodeStats struct {
	timesteps int
	pushed    int
	probes    int
	fallbacks int
}

func (d decodeStats) record(elapsed time.Duration) {
	decodesTotal.Inc()
	decodeTimesteps.Observe(float64(d.timesteps))
	decodeDuration.Observe(elapsed.Seconds())
	nodesPushed.Add(float64(d.pushed))
	dictionaryProbes.Add(float64(d.probes))
	tierFallbacks.Add(float64(d.fallbacks))
}

// Stats describes the work done by the last decode.
type Stats struct {
	Timesteps        int `json:"timesteps"`
	NodesPushed      int `json:"nodes_pushed"`
	DictionaryProbes int `json:"dictionary_probes"`
	TierFallbacks    int `json:"tier_fallbacks"`
}

// Stats returns counters for the last decode.
func (s *Search) Stats() Stats {
	return Stats{
		Timesteps:        s.stats.timesteps,
		NodesPushed:      s.stats.pushed,
		DictionaryProbes: s.stats.probes,
		TierFallbacks:    s.stats.fallbacks,
	}
}
