package probe

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imectx/internal/ime"
	"imectx/internal/metrics"
)

// stubPlatform serves a fixed composition. It is safe for concurrent use
// so tests can change it while a poller runs.
type stubPlatform struct {
	mu         sync.Mutex
	himc       ime.HIMC
	comp       map[uint32][]byte
	cursor     int32
	candidates []byte
	acquired   int
	released   int
}

func newStub() *stubPlatform {
	return &stubPlatform{himc: 7, comp: map[uint32][]byte{}, cursor: -1}
}

func (s *stubPlatform) Name() string     { return "stub" }
func (s *stubPlatform) IMMEnabled() bool { return true }

func (s *stubPlatform) GetContext(ime.HWND) ime.HIMC {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired++
	return s.himc
}

func (s *stubPlatform) ReleaseContext(ime.HWND, ime.HIMC) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return true
}

func (s *stubPlatform) GetCompositionString(_ ime.HIMC, mode uint32, buf []byte) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == ime.GCSCursorPos {
		return s.cursor
	}
	data, ok := s.comp[mode]
	if !ok {
		return -1
	}
	if len(buf) == 0 {
		return int32(len(data))
	}
	return int32(copy(buf, data))
}

func (s *stubPlatform) GetCandidateList(_ ime.HIMC, _ uint32, buf []byte) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(buf) == 0 {
		return uint32(len(s.candidates))
	}
	return uint32(copy(buf, s.candidates))
}

func (s *stubPlatform) SetCandidateWindow(ime.HIMC, *ime.CandidateForm) bool { return true }

func (s *stubPlatform) AssociateContextEx(ime.HWND, ime.HIMC, uint32) bool { return true }

func (s *stubPlatform) setComposing(text string, attrs []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comp[ime.GCSCompStr] = utf16Bytes(text)
	if attrs != nil {
		s.comp[ime.GCSCompAttr] = attrs
	}
}

func (s *stubPlatform) setResult(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comp[ime.GCSResultStr] = utf16Bytes(text)
}

func (s *stubPlatform) counts() (acquired, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.released
}

func utf16Bytes(text string) []byte {
	units := utf16.Encode([]rune(text))
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

func candidateList(selection uint32, items ...string) []byte {
	header := 24 + 4*len(items)
	var body []byte
	buf := make([]byte, header)
	for i, item := range items {
		binary.LittleEndian.PutUint32(buf[24+4*i:], uint32(header+len(body)))
		body = append(body, utf16Bytes(item)...)
		body = append(body, 0, 0)
	}
	binary.LittleEndian.PutUint32(buf[0:], uint32(header+len(body)))
	binary.LittleEndian.PutUint32(buf[4:], ime.CandRead)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(items)))
	binary.LittleEndian.PutUint32(buf[12:], selection)
	binary.LittleEndian.PutUint32(buf[20:], uint32(len(items)))
	return append(buf, body...)
}

func TestTake(t *testing.T) {
	p := newStub()
	// "かんじ" converted with the middle clause targeted.
	p.setComposing("かんじ", []byte{2, 1, 2})
	p.setResult("漢字")
	p.candidates = candidateList(1, "感じ", "漢字")

	snap := Take(p, 0x42, Options{Candidates: true})

	assert.Equal(t, uintptr(0x42), snap.Window)
	assert.True(t, snap.Active)
	require.NotNil(t, snap.Composing)
	assert.Equal(t, "かんじ", snap.Composing.Text)
	assert.Equal(t, 3, snap.Composing.Start)
	assert.Equal(t, 6, snap.Composing.End)
	assert.Equal(t, "ん", snap.Composing.Target)
	assert.Equal(t, 3, snap.Composing.Graphemes)

	require.NotNil(t, snap.Composed)
	assert.Equal(t, "漢字", *snap.Composed)

	require.NotNil(t, snap.Candidates)
	assert.Equal(t, "read", snap.Candidates.Style)
	assert.Equal(t, uint32(1), snap.Candidates.Selection)
	assert.Equal(t, []string{"感じ", "漢字"}, snap.Candidates.Items)

	acquired, released := p.counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestTakeGraphemes(t *testing.T) {
	p := newStub()
	p.setComposing("👍🏽か", nil)

	snap := Take(p, 1, Options{})
	require.NotNil(t, snap.Composing)
	assert.Equal(t, 2, snap.Composing.Graphemes)
	assert.False(t, snap.Composing.HasTarget)
}

func TestTakeSkipsCandidates(t *testing.T) {
	p := newStub()
	p.candidates = candidateList(0, "一")

	snap := Take(p, 1, Options{Candidates: false})
	assert.Nil(t, snap.Candidates)
	assert.True(t, snap.Empty())
}

func TestTakeNoContext(t *testing.T) {
	p := newStub()
	p.himc = 0
	p.setComposing("あ", nil)

	snap := Take(p, 1, Options{Candidates: true})
	assert.False(t, snap.Active)
	assert.True(t, snap.Empty())

	_, released := p.counts()
	assert.Equal(t, 1, released)
}

func TestSnapshotString(t *testing.T) {
	composed := "漢字"
	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"no context", Snapshot{Window: 0x1a}, "hwnd=0x1a no-context"},
		{"idle", Snapshot{Window: 0x1a, Active: true}, "hwnd=0x1a idle"},
		{"target", Snapshot{Window: 1, Active: true, Composing: &Composing{
			Text: "かんじ", Start: 3, End: 6, HasTarget: true, Graphemes: 3,
		}}, `hwnd=0x1 composing="かんじ" graphemes=3 target=3..6`},
		{"cursor", Snapshot{Window: 1, Active: true, Composing: &Composing{
			Text: "か", Start: 3, End: 3, HasTarget: true, Graphemes: 1,
		}}, `hwnd=0x1 composing="か" graphemes=1 cursor=3`},
		{"composed and candidates", Snapshot{Window: 1, Active: true,
			Composed:   &composed,
			Candidates: &Candidates{Style: "read", Selection: 1, Items: []string{"感じ", "漢字"}},
		}, `hwnd=0x1 composed="漢字" candidates=["感じ" "漢字"] style=read selection=1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.String())
		})
	}
}

func TestReporterJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, FormatJSON)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	composed := "<ok>"
	require.NoError(t, r.Report(Snapshot{Window: 5, Active: true, Composed: &composed}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "2026-01-02T03:04:05Z", rec["time"])
	assert.Equal(t, float64(5), rec["window"])
	assert.Equal(t, true, rec["active"])
	assert.Equal(t, "<ok>", rec["composed"])
	assert.NotContains(t, rec, "composing")
	assert.Contains(t, buf.String(), "<ok>")
}

func TestReporterText(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, FormatText)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, r.Report(Snapshot{Window: 0x10, Active: true}))
	assert.Equal(t, "2026-01-02T03:04:05Z hwnd=0x10 idle\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}

func TestStyleName(t *testing.T) {
	assert.Equal(t, "read", StyleName(ime.CandRead))
	assert.Equal(t, "stroke", StyleName(ime.CandStroke))
	assert.Equal(t, "unknown", StyleName(99))
}

// syncBuffer guards a bytes.Buffer shared with a running poller.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := strings.TrimSpace(b.buf.String())
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestPollerReportsChanges(t *testing.T) {
	p := newStub()
	var out syncBuffer

	poller := NewPoller(p, Fixed(9), NewReporter(&out, FormatText), 5*time.Millisecond, nil)
	assert.True(t, poller.LastSample().IsZero())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return len(out.lines()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// Unchanged state is not reported again.
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, out.lines(), 1)

	p.setComposing("か", nil)
	require.Eventually(t, func() bool { return len(out.lines()) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, poller.LastSample().IsZero())

	lines := out.lines()
	assert.True(t, strings.HasSuffix(lines[0], "hwnd=0x9 idle"))
	assert.Contains(t, lines[1], `composing="か"`)

	acquired, released := p.counts()
	assert.Equal(t, acquired, released)
}

func TestPollerSetInterval(t *testing.T) {
	poller := NewPoller(newStub(), Fixed(1), NewReporter(&bytes.Buffer{}, FormatText), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	poller.SetInterval(time.Millisecond)
	assert.Equal(t, time.Millisecond, poller.Interval())

	// Non-positive intervals are ignored.
	poller.SetInterval(0)
	assert.Equal(t, time.Millisecond, poller.Interval())

	cancel()
	require.NoError(t, <-done)
}

func TestPollerRejectsBadInterval(t *testing.T) {
	poller := NewPoller(newStub(), Fixed(1), NewReporter(&bytes.Buffer{}, FormatText), 0, nil)
	assert.Error(t, poller.Run(context.Background()))
}

func TestPollerMetrics(t *testing.T) {
	p := newStub()
	p.setComposing("かな", nil)
	p.candidates = candidateList(0, "仮名", "かな", "カナ")

	m := metrics.NewProbeMetrics(metrics.NewRegistry("test"))
	poller := NewPoller(p, Fixed(3), NewReporter(&syncBuffer{}, FormatJSON), 2*time.Millisecond, nil)
	poller.SetMetrics(m)
	assert.Equal(t, int64(2), m.PollIntervalMs.Value())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return m.SamplesTotal.Value() >= 3 }, 2*time.Second, 2*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, uint64(1), m.ChangesTotal.Value())
	assert.Equal(t, m.SamplesTotal.Value(), m.ComposingTotal.Value())
	assert.Equal(t, m.SamplesTotal.Value(), m.CandidatesTotal.Value())
	assert.Zero(t, m.NoContextTotal.Value())
	assert.Equal(t, int64(6), m.CompositionBytes.Value())
	assert.Equal(t, int64(3), m.CandidateCount.Value())
	assert.Equal(t, m.SamplesTotal.Value(), m.SampleDuration.Count())

	poller.SetInterval(20 * time.Millisecond)
	assert.Equal(t, int64(20), m.PollIntervalMs.Value())
}
