package model

import (
	"encoding/json"
	"testing"
)

func TestDecodeResultMessage(t *testing.T) {
	data := []byte(`{"id":"abc","verdict":"ACCEPTED","time_ms":120,"memory_kb":2048,"error":""}`)
	result, err := DecodeResultMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ID != "abc" {
		t.Fatalf("id = %q, want abc", result.ID)
	}
	if result.Verdict != string(VerdictAccepted) {
		t.Fatalf("verdict = %q", result.Verdict)
	}
	if result.SchemaVersion != 1 {
		t.Fatalf("absent schema_version should default to 1, got %d", result.SchemaVersion)
	}
	if result.Failed() {
		t.Fatal("empty error must not mark the result failed")
	}
}

func TestDecodeResultMessageRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{"id":`},
		{"missing id", `{"verdict":"ACCEPTED"}`},
		{"unknown verdict", `{"id":"abc","verdict":"MAYBE"}`},
		{"future schema", `{"schema_version":2,"id":"abc","verdict":"ACCEPTED"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeResultMessage([]byte(tc.data)); err == nil {
				t.Fatalf("expected decode error for %s", tc.name)
			}
		})
	}
}

func TestDecodeResultMessageToleratesUnknownFields(t *testing.T) {
	data := []byte(`{"id":"abc","verdict":"WRONG_ANSWER","time_ms":5,"memory_kb":10,"error":"","judge_node":"worker-3"}`)
	result, err := DecodeResultMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Verdict != string(VerdictWrongAnswer) {
		t.Fatalf("verdict = %q", result.Verdict)
	}
}

func TestResultMessageFailed(t *testing.T) {
	result := &ResultMessage{ID: "x", Verdict: string(VerdictAccepted), Error: "sandbox crashed"}
	if !result.Failed() {
		t.Fatal("non-empty error must mark the result failed")
	}
}

func TestJobMessageEncode(t *testing.T) {
	job := &JobMessage{
		SchemaVersion:    JobSchemaVersion,
		SubmissionID:     "sub-1",
		Code:             "print(1)",
		Language:         "python",
		ProblemID:        7,
		TimeLimitSeconds: 2.5,
		MemoryLimitMB:    256,
		TestCaseCount:    12,
	}
	data, err := job.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["schema_version"].(float64) != 1 {
		t.Fatalf("schema_version = %v", decoded["schema_version"])
	}
	if decoded["submission_id"].(string) != "sub-1" {
		t.Fatalf("submission_id = %v", decoded["submission_id"])
	}
	if decoded["time_limit_seconds"].(float64) != 2.5 {
		t.Fatalf("time_limit_seconds = %v", decoded["time_limit_seconds"])
	}
}

func TestParseVerdict(t *testing.T) {
	for _, v := range []Verdict{
		VerdictAccepted, VerdictWrongAnswer, VerdictTimeLimitExceeded,
		VerdictMemoryLimitExceeded, VerdictRuntimeError,
		VerdictCompilationError, VerdictInternalError,
	} {
		parsed, err := ParseVerdict(string(v))
		if err != nil {
			t.Fatalf("parse %s: %v", v, err)
		}
		if parsed != v {
			t.Fatalf("parsed %s, want %s", parsed, v)
		}
	}
	if _, err := ParseVerdict("accepted"); err == nil {
		t.Fatal("verdicts are case sensitive")
	}
}

func TestStateTerminal(t *testing.T) {
	if StatePending.Terminal() {
		t.Fatal("PENDING is not terminal")
	}
	if !StateCompleted.Terminal() || !StateFailed.Terminal() {
		t.Fatal("COMPLETED and FAILED are terminal")
	}
}
