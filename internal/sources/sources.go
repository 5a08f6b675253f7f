// Package sources adapts api.Client calls to the fetch signatures used by
// the list loader and the fetch caches.
package sources

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/api"
	"github.com/altinukshini/gha-watch/internal/fetchcache"
	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/logseg"
	"github.com/altinukshini/gha-watch/internal/logstore"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/provider"
)

// RunsPage lists runs matching filter, one page per call.
func RunsPage(client *api.Client, filter api.RunsFilter) listloader.PageFunc[model.Run] {
	return func(ctx context.Context, page, perPage int) (listloader.Page[model.Run], error) {
		f := filter
		f.Page = page
		f.PerPage = perPage
		resp, err := client.ListRuns(ctx, f)
		if err != nil {
			return listloader.Page[model.Run]{}, err
		}
		return listloader.Page[model.Run]{Items: resp.Runs, TotalCount: resp.TotalCount}, nil
	}
}

// Jobs fetches every job listed at a run's jobs_url, the cache key.
func Jobs(client *api.Client) fetchcache.Factory[[]model.Job] {
	return func(jobsURL string) provider.FetchFunc[[]model.Job] {
		return func(ctx context.Context) ([]model.Job, error) {
			resp, err := client.ListAllJobs(ctx, jobsURL)
			if err != nil {
				return nil, err
			}
			return resp.Jobs, nil
		}
	}
}

// JobLog fetches the job behind a `{job.url}/logs` key together with its
// log and segments the log by the job's steps. Logs of completed jobs go
// through store when one is given.
func JobLog(client *api.Client, store *logstore.Store, log *zap.Logger) fetchcache.Factory[model.JobLog] {
	if log == nil {
		log = zap.NewNop()
	}
	return func(logsURL string) provider.FetchFunc[model.JobLog] {
		jobURL := strings.TrimSuffix(logsURL, "/logs")
		return func(ctx context.Context) (model.JobLog, error) {
			job, err := client.GetJob(ctx, jobURL)
			if err != nil {
				return model.JobLog{}, err
			}
			if job.Status == model.RunStatusQueued || job.Status == model.RunStatusWaiting {
				return model.JobLog{Job: *job}, nil
			}

			body, err := openLog(ctx, client, store, *job, logsURL)
			if err != nil {
				return model.JobLog{}, err
			}
			defer body.Close()

			res, err := logseg.Segment(job.Steps, body, log.With(zap.Int64("job_id", job.ID)))
			if err != nil {
				return model.JobLog{}, fmt.Errorf("segment log for job %d: %w", job.ID, err)
			}
			return model.JobLog{Job: *job, Text: res.Text}, nil
		}
	}
}

func openLog(ctx context.Context, client *api.Client, store *logstore.Store, job model.Job, logsURL string) (io.ReadCloser, error) {
	completed := job.Status == model.RunStatusCompleted
	if completed && store != nil && store.Has(job.ID, job.RunAttempt) {
		return store.Open(job.ID, job.RunAttempt)
	}
	body, err := client.DownloadJobLog(ctx, logsURL)
	if err != nil {
		return nil, err
	}
	if !completed || store == nil {
		return body, nil
	}
	defer body.Close()
	return store.Put(job, body)
}
