package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunsFilterQueryString(t *testing.T) {
	tests := []struct {
		name   string
		filter RunsFilter
		want   string
	}{
		{
			name:   "empty filter",
			filter: RunsFilter{},
			want:   "?per_page=30",
		},
		{
			name:   "branch and page",
			filter: RunsFilter{Branch: "main", PerPage: 10, Page: 3},
			want:   "?branch=main&page=3&per_page=10",
		},
		{
			name:   "status and actor",
			filter: RunsFilter{Status: "failure", Actor: "octocat"},
			want:   "?actor=octocat&per_page=30&status=failure",
		},
		{
			name:   "event is escaped",
			filter: RunsFilter{Event: "pull request"},
			want:   "?event=pull+request&per_page=30",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.QueryString())
		})
	}
}

func TestRunsFilterPath(t *testing.T) {
	assert.Equal(t, "actions/runs", RunsFilter{}.path())
	assert.Equal(t, "actions/workflows/42/runs", RunsFilter{WorkflowID: 42, WorkflowFile: "ci.yml"}.path())
	assert.Equal(t, "actions/workflows/ci.yml/runs", RunsFilter{WorkflowFile: "ci.yml"}.path())
}
