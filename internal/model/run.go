package model

import (
	"strconv"
	"time"
)

type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusWaiting    RunStatus = "waiting"
	RunStatusRequested  RunStatus = "requested"
	RunStatusPending    RunStatus = "pending"
)

// Terminal reports whether no further status transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted
}

type RunConclusion string

const (
	ConclusionNone           RunConclusion = ""
	ConclusionSuccess        RunConclusion = "success"
	ConclusionFailure        RunConclusion = "failure"
	ConclusionCancelled      RunConclusion = "cancelled"
	ConclusionSkipped        RunConclusion = "skipped"
	ConclusionTimedOut       RunConclusion = "timed_out"
	ConclusionNeutral        RunConclusion = "neutral"
	ConclusionActionRequired RunConclusion = "action_required"
)

// RunKey identifies a run across refreshes and reruns. A rerun keeps the
// run id and bumps RunAttempt, so the newer attempt replaces the older
// snapshot rather than sitting next to it.
type RunKey int64

func (k RunKey) String() string {
	return strconv.FormatInt(int64(k), 10)
}

type Run struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	DisplayTitle string        `json:"display_title"`
	Status       RunStatus     `json:"status"`
	Conclusion   RunConclusion `json:"conclusion"`
	WorkflowID   int64         `json:"workflow_id"`
	RunNumber    int           `json:"run_number"`
	RunAttempt   int           `json:"run_attempt"`
	Event        string        `json:"event"`
	HeadBranch   string        `json:"head_branch"`
	HeadSHA      string        `json:"head_sha"`
	Actor        Actor         `json:"actor"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	RunStartedAt time.Time     `json:"run_started_at"`
	URL          string        `json:"url"`
	HTMLURL      string        `json:"html_url"`
	JobsURL      string        `json:"jobs_url"`
	LogsURL      string        `json:"logs_url"`
	CancelURL    string        `json:"cancel_url"`
	RerunURL     string        `json:"rerun_url"`
}

type Actor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

type RunsResponse struct {
	TotalCount int   `json:"total_count"`
	Runs       []Run `json:"workflow_runs"`
}

func (r Run) Key() RunKey {
	return RunKey(r.ID)
}

// SameAttempt reports whether r and o are snapshots of one attempt of one
// run.
func (r Run) SameAttempt(o Run) bool {
	return r.ID == o.ID && r.RunAttempt == o.RunAttempt
}

func (r Run) Duration() time.Duration {
	if r.UpdatedAt.IsZero() || r.RunStartedAt.IsZero() {
		return 0
	}
	return r.UpdatedAt.Sub(r.RunStartedAt)
}

func (r Run) ShortSHA() string {
	if len(r.HeadSHA) >= 7 {
		return r.HeadSHA[:7]
	}
	return r.HeadSHA
}
