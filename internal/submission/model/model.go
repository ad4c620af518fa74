package model

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a submission. A submission enters
// PENDING when accepted and makes exactly one transition to a terminal
// state when its result is reconciled.
type State string

const (
	StatePending   State = "PENDING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Verdict is the judge outcome for a completed evaluation.
type Verdict string

const (
	VerdictAccepted            Verdict = "ACCEPTED"
	VerdictWrongAnswer         Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded   Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictMemoryLimitExceeded Verdict = "MEMORY_LIMIT_EXCEEDED"
	VerdictRuntimeError        Verdict = "RUNTIME_ERROR"
	VerdictCompilationError    Verdict = "COMPILATION_ERROR"
	VerdictInternalError       Verdict = "INTERNAL_ERROR"
)

// ParseVerdict validates a verdict string received off the wire.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictAccepted, VerdictWrongAnswer, VerdictTimeLimitExceeded,
		VerdictMemoryLimitExceeded, VerdictRuntimeError,
		VerdictCompilationError, VerdictInternalError:
		return Verdict(s), nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// SubmissionView is the client-facing status representation. Verdict and
// execution metrics are only present once the submission is terminal.
type SubmissionView struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	Verdict        Verdict   `json:"verdict,omitempty"`
	ProblemID      int64     `json:"problem_id"`
	ProblemTitle   string    `json:"problem_title,omitempty"`
	Language       string    `json:"language"`
	SubmissionTime time.Time `json:"submission_time"`
	TimeTakenMS    *int64    `json:"time_taken_ms,omitempty"`
	MemoryUsedKB   *int64    `json:"memory_used_kb,omitempty"`
	Error          string    `json:"error,omitempty"`
}
