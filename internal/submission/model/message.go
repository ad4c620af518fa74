package model

import (
	"encoding/json"
	"fmt"
)

// JobSchemaVersion is the current version of the evaluation job contract.
// Consumers must tolerate unknown fields in newer minor revisions but
// reject a major version they do not understand.
const JobSchemaVersion = 1

// JobMessage is the evaluation job handed to the judge workers. It is
// self-contained: workers never read the submissions table.
type JobMessage struct {
	SchemaVersion    int     `json:"schema_version"`
	SubmissionID     string  `json:"submission_id"`
	Code             string  `json:"code"`
	Language         string  `json:"language"`
	ProblemID        int64   `json:"problem_id"`
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	MemoryLimitMB    int     `json:"memory_limit_mb"`
	TestCaseCount    int     `json:"test_case_count"`
}

// Encode serializes the job for publishing.
func (j *JobMessage) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// ResultMessage is the evaluation outcome reported by judge workers.
// A non-empty Error marks the evaluation itself as failed regardless of
// the verdict carried alongside it.
type ResultMessage struct {
	SchemaVersion int    `json:"schema_version,omitempty"`
	ID            string `json:"id"`
	Verdict       string `json:"verdict"`
	TimeMS        int64  `json:"time_ms"`
	MemoryKB      int64  `json:"memory_kb"`
	Error         string `json:"error"`
}

// Failed reports whether the worker failed to evaluate the submission.
func (r *ResultMessage) Failed() bool {
	return r.Error != ""
}

// DecodeResultMessage parses and validates a result payload. An absent
// schema_version means version 1, the pre-versioning contract.
func DecodeResultMessage(data []byte) (*ResultMessage, error) {
	var msg ResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed result payload: %w", err)
	}
	if msg.SchemaVersion == 0 {
		msg.SchemaVersion = 1
	}
	if msg.SchemaVersion > JobSchemaVersion {
		return nil, fmt.Errorf("unsupported result schema version %d", msg.SchemaVersion)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("result is missing submission id")
	}
	if _, err := ParseVerdict(msg.Verdict); err != nil {
		return nil, err
	}
	return &msg, nil
}
