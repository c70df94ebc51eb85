package ime

import "errors"

// ErrUnavailable is returned by callers that require input method support
// on a system that has none.
var ErrUnavailable = errors.New("ime: input method support not available")

// Candidate list parse errors. Context methods absorb these as "no data";
// they surface only through logs and tests.
var (
	ErrShortCandidateList = errors.New("ime: candidate list shorter than header")
	ErrCandidateCount     = errors.New("ime: candidate count exceeds buffer")
	ErrCandidateOffset    = errors.New("ime: candidate offset outside buffer")
)
