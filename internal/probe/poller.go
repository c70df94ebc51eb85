package probe

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"imectx/internal/ime"
	"imectx/internal/metrics"
)

// WindowFunc picks the window to sample on each tick.
type WindowFunc func() ime.HWND

// Fixed always selects hwnd.
func Fixed(hwnd ime.HWND) WindowFunc {
	return func() ime.HWND { return hwnd }
}

// Poller samples a window at an interval and reports each change.
type Poller struct {
	platform ime.Platform
	window   WindowFunc
	reporter *Reporter
	base     *slog.Logger
	logger   *slog.Logger
	metrics  *metrics.ProbeMetrics

	interval   atomic.Int64
	candidates atomic.Bool
	lastSample atomic.Int64
	reset      chan struct{}
}

// NewPoller creates a poller. interval must be positive.
func NewPoller(p ime.Platform, window WindowFunc, r *Reporter, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	pl := &Poller{
		platform: p,
		window:   window,
		reporter: r,
		base:     logger,
		logger:   logger.With("subsystem", "probe"),
		reset:    make(chan struct{}, 1),
	}
	pl.interval.Store(int64(interval))
	pl.candidates.Store(true)
	return pl
}

// SetMetrics records sampling metrics in m. Call it before Run.
func (p *Poller) SetMetrics(m *metrics.ProbeMetrics) {
	p.metrics = m
	m.SetPollInterval(p.Interval())
}

// Interval returns the current poll interval.
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// SetInterval changes the poll interval of a running poller.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 || time.Duration(p.interval.Swap(int64(d))) == d {
		return
	}
	p.metrics.SetPollInterval(d)
	select {
	case p.reset <- struct{}{}:
	default:
	}
}

// SetCandidates enables or disables candidate list queries.
func (p *Poller) SetCandidates(on bool) {
	p.candidates.Store(on)
}

// Run polls until ctx is cancelled. The first sample is always reported.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval() <= 0 {
		return fmt.Errorf("invalid poll interval: %s", p.Interval())
	}

	// Input contexts belong to the calling thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	var last *Snapshot
	for {
		start := time.Now()
		snap := p.Sample()
		changed := last == nil || !snap.Equal(*last)
		p.metrics.ObserveSample(sampleMetrics(snap, time.Since(start), changed))
		p.lastSample.Store(time.Now().UnixNano())

		if changed {
			if err := p.reporter.Report(snap); err != nil {
				p.metrics.ReportFailed()
				return fmt.Errorf("report snapshot: %w", err)
			}
			last = &snap
		}

		select {
		case <-ctx.Done():
			return nil
		case <-p.reset:
			ticker.Reset(p.Interval())
			p.logger.Debug("poll interval changed", "interval", p.Interval())
		case <-ticker.C:
		}
	}
}

// LastSample returns when Run last sampled, or the zero time.
func (p *Poller) LastSample() time.Time {
	ns := p.lastSample.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Sample takes one snapshot of the selected window.
func (p *Poller) Sample() Snapshot {
	hwnd := p.window()
	snap := Take(p.platform, hwnd, Options{
		Candidates: p.candidates.Load(),
		Logger:     p.base,
	})
	if snap.Composing != nil {
		p.logger.Debug("composition sampled",
			"hwnd", uintptr(hwnd),
			"composing_text", snap.Composing.Text,
			"start", snap.Composing.Start,
			"end", snap.Composing.End,
		)
	}
	return snap
}

func sampleMetrics(s Snapshot, d time.Duration, changed bool) metrics.Sample {
	m := metrics.Sample{
		Duration:         d,
		Active:           s.Active,
		Changed:          changed,
		CompositionBytes: -1,
		Candidates:       -1,
	}
	if s.Composing != nil {
		m.CompositionBytes = len(s.Composing.Text)
	}
	if s.Candidates != nil {
		m.Candidates = len(s.Candidates.Items)
	}
	return m
}
