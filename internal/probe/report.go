package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Format selects how snapshots are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown probe output: %s", s)
	}
}

// Reporter writes snapshots to an output stream.
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	enc    *json.Encoder
	now    func() time.Time
}

// NewReporter creates a reporter writing to w.
func NewReporter(w io.Writer, format Format) *Reporter {
	r := &Reporter{w: w, format: format, now: time.Now}
	if format == FormatJSON {
		r.enc = json.NewEncoder(w)
		r.enc.SetEscapeHTML(false)
	}
	return r
}

type jsonRecord struct {
	Time string `json:"time"`
	Snapshot
}

// Report writes one snapshot.
func (r *Reporter) Report(s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().Format(time.RFC3339Nano)
	if r.format == FormatJSON {
		return r.enc.Encode(jsonRecord{Time: ts, Snapshot: s})
	}

	_, err := io.WriteString(r.w, ts+" "+s.String()+"\n")
	return err
}

// String renders s on one line.
func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteString("hwnd=0x" + strconv.FormatUint(uint64(s.Window), 16))

	if !s.Active {
		b.WriteString(" no-context")
		return b.String()
	}
	if s.Empty() {
		b.WriteString(" idle")
		return b.String()
	}

	if c := s.Composing; c != nil {
		fmt.Fprintf(&b, " composing=%s graphemes=%d", strconv.Quote(c.Text), c.Graphemes)
		switch {
		case !c.HasTarget:
		case c.Start == c.End:
			fmt.Fprintf(&b, " cursor=%d", c.Start)
		default:
			fmt.Fprintf(&b, " target=%d..%d", c.Start, c.End)
		}
	}
	if s.Composed != nil {
		b.WriteString(" composed=" + strconv.Quote(*s.Composed))
	}
	if c := s.Candidates; c != nil {
		quoted := make([]string, len(c.Items))
		for i, item := range c.Items {
			quoted[i] = strconv.Quote(item)
		}
		fmt.Fprintf(&b, " candidates=[%s] style=%s selection=%d", strings.Join(quoted, " "), c.Style, c.Selection)
	}
	return b.String()
}
