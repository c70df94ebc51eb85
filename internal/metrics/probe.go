package metrics

import "time"

// ProbeMetrics holds the metrics recorded while sampling input contexts.
// A nil *ProbeMetrics records nothing.
type ProbeMetrics struct {
	registry *Registry

	SamplesTotal    *Counter
	ChangesTotal    *Counter
	NoContextTotal  *Counter
	ComposingTotal  *Counter
	CandidatesTotal *Counter
	ReportErrors    *Counter

	CompositionBytes *Gauge
	CandidateCount   *Gauge
	PollIntervalMs   *Gauge

	SampleDuration  *Histogram
	CompositionSize *Histogram
}

// NewProbeMetrics registers the probe metrics in registry.
func NewProbeMetrics(registry *Registry) *ProbeMetrics {
	if registry == nil {
		registry = NewRegistry("imectx")
	}

	return &ProbeMetrics{
		registry: registry,

		SamplesTotal: registry.Counter("samples_total",
			"Total number of input context samples"),
		ChangesTotal: registry.Counter("changes_total",
			"Total number of samples that differed from the previous one"),
		NoContextTotal: registry.Counter("no_context_total",
			"Total number of samples where the window had no input context"),
		ComposingTotal: registry.Counter("composing_samples_total",
			"Total number of samples with a composition in progress"),
		CandidatesTotal: registry.Counter("candidate_samples_total",
			"Total number of samples with a candidate list"),
		ReportErrors: registry.Counter("report_errors_total",
			"Total number of snapshots that could not be written"),

		CompositionBytes: registry.Gauge("composition_bytes",
			"UTF-8 length of the current composition"),
		CandidateCount: registry.Gauge("candidates",
			"Number of entries in the current candidate list"),
		PollIntervalMs: registry.Gauge("poll_interval_ms",
			"Current poll interval in milliseconds"),

		SampleDuration: registry.Histogram("sample_duration_seconds",
			"Time taken to sample an input context", DurationBuckets),
		CompositionSize: registry.Histogram("composition_size_bytes",
			"UTF-8 length of sampled compositions", SizeBuckets),
	}
}

// Registry returns the registry the metrics live in.
func (m *ProbeMetrics) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Sample describes one input context sample.
type Sample struct {
	Duration         time.Duration
	Active           bool
	Changed          bool
	CompositionBytes int // -1 without a composition
	Candidates       int // -1 without a candidate list
}

// ObserveSample records s.
func (m *ProbeMetrics) ObserveSample(s Sample) {
	if m == nil {
		return
	}

	m.SamplesTotal.Inc()
	m.SampleDuration.ObserveDuration(s.Duration)
	if s.Changed {
		m.ChangesTotal.Inc()
	}
	if !s.Active {
		m.NoContextTotal.Inc()
	}

	if s.CompositionBytes >= 0 {
		m.ComposingTotal.Inc()
		m.CompositionSize.Observe(float64(s.CompositionBytes))
		m.CompositionBytes.Set(int64(s.CompositionBytes))
	} else {
		m.CompositionBytes.Set(0)
	}

	if s.Candidates >= 0 {
		m.CandidatesTotal.Inc()
		m.CandidateCount.Set(int64(s.Candidates))
	} else {
		m.CandidateCount.Set(0)
	}
}

// ReportFailed counts a snapshot that could not be written.
func (m *ProbeMetrics) ReportFailed() {
	if m == nil {
		return
	}
	m.ReportErrors.Inc()
}

// SetPollInterval records the current poll interval.
func (m *ProbeMetrics) SetPollInterval(d time.Duration) {
	if m == nil {
		return
	}
	m.PollIntervalMs.Set(d.Milliseconds())
}
