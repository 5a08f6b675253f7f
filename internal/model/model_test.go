package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRerunKeepsKey(t *testing.T) {
	a := Run{ID: 42, RunAttempt: 1}
	b := Run{ID: 42, RunAttempt: 2}
	if a.Key() != b.Key() {
		t.Fatal("attempts of one run must share a key")
	}
	if a.SameAttempt(b) {
		t.Error("different attempts reported as the same")
	}
	if !b.SameAttempt(Run{ID: 42, RunAttempt: 2, Status: RunStatusCompleted}) {
		t.Error("refreshed snapshot of one attempt reported as different")
	}
	if got := b.Key().String(); got != "42" {
		t.Errorf("unexpected key string %q", got)
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusWaiting, RunStatusRequested, RunStatusPending} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !RunStatusCompleted.Terminal() {
		t.Error("completed should be terminal")
	}
}

func TestJobDecodeNullTimes(t *testing.T) {
	raw := `{
		"id": 7, "run_id": 42, "run_attempt": 1, "status": "in_progress", "conclusion": null,
		"started_at": "2024-02-11T18:09:00Z", "completed_at": null,
		"url": "https://api.github.com/repos/o/r/actions/jobs/7",
		"steps": [
			{"number": 1, "name": "Set up job", "status": "completed", "conclusion": "success",
			 "started_at": "2024-02-11T18:09:00Z", "completed_at": "2024-02-11T18:09:05Z"},
			{"number": 2, "name": "Build", "status": "queued", "conclusion": null,
			 "started_at": null, "completed_at": null}
		]
	}`
	var j Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		t.Fatal(err)
	}
	if j.CompletedAt != nil || j.Duration() != 0 {
		t.Errorf("running job has no completion: %v", j.CompletedAt)
	}
	if j.Conclusion != ConclusionNone {
		t.Errorf("null conclusion should decode empty, got %q", j.Conclusion)
	}
	if j.Steps[1].StartedAt != nil {
		t.Error("queued step should have no start time")
	}
	if got := j.Steps[0].CompletedAt.Sub(*j.Steps[0].StartedAt); got != 5*time.Second {
		t.Errorf("unexpected step duration %s", got)
	}
	if got := j.LogsURL(); got != "https://api.github.com/repos/o/r/actions/jobs/7/logs" {
		t.Errorf("unexpected logs url %q", got)
	}
}

func TestShortSHA(t *testing.T) {
	if got := (Run{HeadSHA: "0123456789abcdef"}).ShortSHA(); got != "0123456" {
		t.Errorf("got %q", got)
	}
	if got := (Run{HeadSHA: "abc"}).ShortSHA(); got != "abc" {
		t.Errorf("got %q", got)
	}
}
