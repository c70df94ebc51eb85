// Package ime reads composition state from the Windows Input Method Manager
// (IMM32) for a single window.
//
// # Overview
//
// While the user composes CJK text, the input method keeps the in-progress
// string, a per-unit attribute array and a list of candidate completions.
// IMM32 exposes them through a size-probe-then-fill buffer protocol in
// UTF-16. This package turns those buffers into UTF-8 strings and byte
// offsets.
//
//	┌────────────────┐   ImmGetContext    ┌────────────────┐
//	│ window (HWND)  │───────────────────→│ Context (HIMC) │
//	└────────────────┘                    └───────┬────────┘
//	                                              │
//	        ┌─────────────────────────────────────┼──────────────────────┐
//	        ↓                                     ↓                      ↓
//	 GCS_COMPSTR + GCS_COMPATTR           GCS_RESULTSTR        ImmGetCandidateListW
//	        ↓                                     ↓                      ↓
//	 Composition{Text, Start, End}          committed text          []string
//
// # Buffer protocol
//
// Every query first asks for the required size with a NULL buffer, then
// fills a buffer of that size:
//
//	┌──────────────┬──────────────────────────────────────────┐
//	│ probe result │ meaning                                  │
//	├──────────────┼──────────────────────────────────────────┤
//	│ < 0          │ query failed, no data                    │
//	│ 0            │ nothing to report, empty buffer          │
//	│ > 0          │ allocate and fill; negative fill = error │
//	└──────────────┴──────────────────────────────────────────┘
//
// Composition strings are decoded strictly: an odd byte count or an unpaired
// surrogate discards the whole string. Candidate strings are decoded with
// replacement characters so one bad entry does not hide the others. The
// candidate record's count and offsets are validated against the buffer
// before they are followed.
//
// # Offsets
//
// The attribute array has one tag per UTF-16 unit and is walked alongside
// the characters of the decoded text, accumulating UTF-8 byte offsets. The
// first contiguous run tagged ATTR_TARGET_CONVERTED or
// ATTR_TARGET_NOTCONVERTED becomes [Start, End). Without such a run both
// offsets fall back to the cursor reported by GCS_CURSORPOS.
//
// # Lifetime
//
// A Context is acquired per use and released exactly once:
//
//	ctx := ime.Acquire(platform, hwnd)
//	defer ctx.Release()
//
// All methods are synchronous and must run on the window's thread. Absence
// of data is normal and reported through an ok result, never an error.
// Systems without IMM support (SM_IMMENABLED == 0) turn candidate placement
// and SetAllowed into no-ops.
package ime
