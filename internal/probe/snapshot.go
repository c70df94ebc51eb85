// Package probe samples the input method state of a window and reports
// changes. It backs the imeprobe command.
package probe

import (
	"log/slog"
	"reflect"

	"github.com/rivo/uniseg"

	"imectx/internal/ime"
)

// Snapshot is the input method state of one window at one instant.
type Snapshot struct {
	Window     uintptr     `json:"window"`
	Active     bool        `json:"active"`
	Composing  *Composing  `json:"composing,omitempty"`
	Composed   *string     `json:"composed,omitempty"`
	Candidates *Candidates `json:"candidates,omitempty"`
}

// Composing is an in-progress composition. Start and End are byte offsets
// into Text.
type Composing struct {
	Text      string `json:"text"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Target    string `json:"target,omitempty"`
	HasTarget bool   `json:"has_target"`
	Graphemes int    `json:"graphemes"`
}

// Candidates is the first candidate list of the context.
type Candidates struct {
	Style     string   `json:"style"`
	Selection uint32   `json:"selection"`
	PageStart uint32   `json:"page_start"`
	PageSize  uint32   `json:"page_size"`
	Items     []string `json:"items"`
}

// Options controls what Take queries.
type Options struct {
	// Candidates enables the candidate list query.
	Candidates bool

	// Logger receives diagnostics from the input context.
	Logger *slog.Logger
}

// Take acquires the input context of hwnd, reads it and releases it.
func Take(p ime.Platform, hwnd ime.HWND, opts Options) Snapshot {
	snap := Snapshot{Window: uintptr(hwnd)}

	ctx := ime.Acquire(p, hwnd, ime.WithLogger(opts.Logger))
	defer ctx.Release()

	snap.Active = ctx.Handle() != 0
	if !snap.Active {
		return snap
	}

	if comp, ok := ctx.ComposingText(); ok {
		snap.Composing = &Composing{
			Text:      comp.Text,
			Start:     comp.Start,
			End:       comp.End,
			Target:    comp.Target(),
			HasTarget: comp.HasTarget,
			Graphemes: uniseg.GraphemeClusterCount(comp.Text),
		}
	}

	if text, ok := ctx.ComposedText(); ok {
		snap.Composed = &text
	}

	if opts.Candidates {
		if info, ok := ctx.CandidateListInfo(); ok {
			snap.Candidates = &Candidates{
				Style:     StyleName(info.Style),
				Selection: info.Selection,
				PageStart: info.PageStart,
				PageSize:  info.PageSize,
				Items:     info.Candidates,
			}
		}
	}

	return snap
}

// Equal reports whether two snapshots describe the same state.
func (s Snapshot) Equal(o Snapshot) bool {
	return reflect.DeepEqual(s, o)
}

// Empty reports whether the snapshot carries no input method data.
func (s Snapshot) Empty() bool {
	return s.Composing == nil && s.Composed == nil && s.Candidates == nil
}

// StyleName returns the name of a candidate list style.
func StyleName(style uint32) string {
	switch style {
	case ime.CandRead:
		return "read"
	case ime.CandCode:
		return "code"
	case ime.CandMeaning:
		return "meaning"
	case ime.CandRadical:
		return "radical"
	case ime.CandStroke:
		return "stroke"
	default:
		return "unknown"
	}
}
