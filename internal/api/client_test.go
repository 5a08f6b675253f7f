package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/altinukshini/gha-watch/internal/model"
)

func TestRepoPath(t *testing.T) {
	c := &Client{baseURL: DefaultBaseURL, owner: "octocat", repo: "hello-world"}
	got := c.repoPath("actions/runs")
	want := "https://api.github.com/repos/octocat/hello-world/actions/runs"
	if got != want {
		t.Errorf("repoPath() = %q, want %q", got, want)
	}
}

func newTestClient(t *testing.T, r chi.Router) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		Owner:   "octocat",
		Repo:    "hello-world",
		Token:   "test-token",
		BaseURL: srv.URL,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestListRuns(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/repos/octocat/hello-world/actions/runs", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "main", req.URL.Query().Get("branch"))
		assert.Equal(t, "2", req.URL.Query().Get("page"))
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Limit", "5000")
		writeJSON(w, http.StatusOK, `{"total_count": 42, "workflow_runs": [
			{"id": 7, "run_attempt": 1, "status": "in_progress", "head_branch": "main",
			 "jobs_url": "http://example.invalid/jobs", "cancel_url": "http://example.invalid/cancel"}
		]}`)
	})
	c, _ := newTestClient(t, r)

	resp, err := c.ListRuns(context.Background(), RunsFilter{Branch: "main", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 42, resp.TotalCount)
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, model.RunKey(7), resp.Runs[0].Key())
	assert.Equal(t, model.RunStatusInProgress, resp.Runs[0].Status)
	assert.Equal(t, 4999, c.RateLimit().Remaining)
}

func TestListRunsNotFoundIsEmpty(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/repos/octocat/hello-world/actions/workflows/{id}/runs", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
	})
	c, _ := newTestClient(t, r)

	resp, err := c.ListRuns(context.Background(), RunsFilter{WorkflowID: 99})
	require.NoError(t, err)
	assert.Empty(t, resp.Runs)
}

func TestRemoteStatusErrorKeepsFieldMessages(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/repos/octocat/hello-world/actions/runs", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message": "Validation Failed",
			"errors": [{"resource": "WorkflowRun", "field": "status", "code": "invalid", "message": "status is not a valid value"}]}`)
	})
	c, _ := newTestClient(t, r)

	_, err := c.ListRuns(context.Background(), RunsFilter{Status: "bogus"})
	require.Error(t, err)

	var se *RemoteStatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
	assert.Equal(t, "Validation Failed", se.Message)
	require.Len(t, se.Fields, 1)
	assert.Equal(t, "status is not a valid value", se.Fields[0].Message)
	assert.Contains(t, err.Error(), "status is not a valid value")
	assert.False(t, IsTransport(err))
}

func TestTransportError(t *testing.T) {
	c, srv := newTestClient(t, chi.NewRouter())
	srv.Close()

	_, err := c.GetJob(context.Background(), srv.URL+"/repos/octocat/hello-world/actions/jobs/1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestJobsAndLogs(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/repos/octocat/hello-world/actions/runs/7/jobs", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "latest", req.URL.Query().Get("filter"))
		writeJSON(w, http.StatusOK, `{"total_count": 1, "jobs": [
			{"id": 11, "run_id": 7, "status": "completed", "conclusion": "success",
			 "steps": [{"number": 1, "name": "Set up job", "conclusion": "success",
			            "started_at": "2024-02-11T18:09:50Z", "completed_at": null}]}
		]}`)
	})
	r.Get("/repos/octocat/hello-world/actions/jobs/11/logs", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, "2024-02-11T18:09:51.1234567Z hello\n")
	})
	r.Post("/repos/octocat/hello-world/actions/runs/7/cancel", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusAccepted, `{}`)
	})
	c, srv := newTestClient(t, r)
	base := srv.URL + "/repos/octocat/hello-world/actions"

	jobs, err := c.ListAllJobs(context.Background(), base+"/runs/7/jobs")
	require.NoError(t, err)
	require.Len(t, jobs.Jobs, 1)
	step := jobs.Jobs[0].Steps[0]
	require.NotNil(t, step.StartedAt)
	assert.Nil(t, step.CompletedAt)

	body, err := c.DownloadJobLog(context.Background(), base+"/jobs/11/logs")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "2024-02-11T18:09:51.1234567Z hello\n", string(data))

	err = c.CancelRun(context.Background(), model.Run{ID: 7, CancelURL: base + "/runs/7/cancel"})
	require.NoError(t, err)

	err = c.RerunRun(context.Background(), model.Run{ID: 7})
	assert.Error(t, err)
}

func TestParseRateLimit(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "4999")
	resp.Header.Set("X-RateLimit-Limit", "5000")
	resp.Header.Set("X-RateLimit-Reset", "1707674990")

	assert.Equal(t, RateLimit{Remaining: 4999, Limit: 5000, Reset: 1707674990}, ParseRateLimit(resp))
	assert.Equal(t, RateLimit{}, ParseRateLimit(nil))
}
