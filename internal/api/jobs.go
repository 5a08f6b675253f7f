package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/altinukshini/gha-watch/internal/model"
)

type JobsFilter struct {
	Filter  string // "latest", "all"
	PerPage int
	Page    int
}

func (f JobsFilter) QueryString() string {
	v := url.Values{}
	if f.Filter != "" {
		v.Set("filter", f.Filter)
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	} else {
		v.Set("per_page", "100")
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if qs := v.Encode(); qs != "" {
		return "?" + qs
	}
	return ""
}

// ListJobs fetches one page of the list served at a run's jobs_url.
func (c *Client) ListJobs(ctx context.Context, jobsURL string, filter JobsFilter) (*model.JobsResponse, error) {
	var resp model.JobsResponse
	if err := c.get(ctx, jobsURL+filter.QueryString(), &resp); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return &resp, nil
}

// ListAllJobs walks every page of jobsURL.
func (c *Client) ListAllJobs(ctx context.Context, jobsURL string) (*model.JobsResponse, error) {
	all := &model.JobsResponse{}
	for page := 1; ; page++ {
		resp, err := c.ListJobs(ctx, jobsURL, JobsFilter{Filter: "latest", PerPage: 100, Page: page})
		if err != nil {
			return nil, err
		}
		all.TotalCount = resp.TotalCount
		all.Jobs = append(all.Jobs, resp.Jobs...)
		if len(resp.Jobs) == 0 || len(all.Jobs) >= resp.TotalCount {
			return all, nil
		}
	}
}

func (c *Client) GetJob(ctx context.Context, jobURL string) (*model.Job, error) {
	var job model.Job
	if err := c.get(ctx, jobURL, &job); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}
