package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/altinukshini/gha-watch/internal/model"
)

const DefaultRunsPerPage = 30

// RunsFilter narrows the run list server side. A workflow id wins over a
// workflow file name.
type RunsFilter struct {
	WorkflowID   int64
	WorkflowFile string
	Actor        string
	Branch       string
	Event        string
	Status       string
	PerPage      int
	Page         int
}

// path is the repo-relative collection the filter lists from.
func (f RunsFilter) path() string {
	switch {
	case f.WorkflowID > 0:
		return "actions/workflows/" + strconv.FormatInt(f.WorkflowID, 10) + "/runs"
	case f.WorkflowFile != "":
		return "actions/workflows/" + url.PathEscape(f.WorkflowFile) + "/runs"
	default:
		return "actions/runs"
	}
}

func (f RunsFilter) QueryString() string {
	v := url.Values{}
	for key, val := range map[string]string{
		"actor":  f.Actor,
		"branch": f.Branch,
		"event":  f.Event,
		"status": f.Status,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = DefaultRunsPerPage
	}
	v.Set("per_page", strconv.Itoa(perPage))
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return "?" + v.Encode()
}

// ListRuns fetches one page of runs. A workflow that was deleted or never
// ran answers 404, which is reported as an empty page.
func (c *Client) ListRuns(ctx context.Context, filter RunsFilter) (*model.RunsResponse, error) {
	var resp model.RunsResponse
	if err := c.get(ctx, c.repoPath(filter.path())+filter.QueryString(), &resp); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return &model.RunsResponse{}, nil
		}
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return &resp, nil
}
