// Package selection binds the selected run and job to cache entries, keeps
// them fresh while the run is live, and republishes when an entry is
// invalidated underneath it.
//
// Every method must be called on the coordination loop.
package selection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/coord"
	"github.com/altinukshini/gha-watch/internal/event"
	"github.com/altinukshini/gha-watch/internal/fetchcache"
	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/provider"
)

const DefaultFrequency = 5 * time.Second

type (
	RunLoader  = listloader.Loader[model.Run, model.RunKey]
	JobsCache  = fetchcache.Cache[[]model.Job]
	LogsCache  = fetchcache.Cache[model.JobLog]
	JobsSource = provider.Provider[[]model.Job]
	LogSource  = provider.Provider[model.JobLog]
)

// JobsUpdate carries the job list of the selected run. Pending is set while
// a fetch is outstanding; it is not the same as an empty list.
type JobsUpdate struct {
	Run     model.Run
	Jobs    []model.Job
	Err     error
	Pending bool
}

// LogUpdate carries the segmented log of the selected job.
type LogUpdate struct {
	JobID   int64
	Log     model.JobLog
	Err     error
	Pending bool
}

type Deps struct {
	Loop      *coord.Loop
	Scheduler *coord.Scheduler
	Runs      *RunLoader
	Jobs      *JobsCache
	Logs      *LogsCache
	Logger    *zap.Logger
}

type Orchestrator struct {
	loop   *coord.Loop
	runs   *RunLoader
	jobs   *JobsCache
	logs   *LogsCache
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	run    *model.Run
	jobID  int64
	jobSrc *JobsSource
	logSrc *LogSource

	jobsFuture *provider.Future[[]model.Job]
	logFuture  *provider.Future[model.JobLog]
	lastJobs   []model.Job

	unsubJobSrc func()
	unsubLogSrc func()
	teardown    []func()

	jobsBound   event.Dispatcher[*JobsSource]
	logBound    event.Dispatcher[*LogSource]
	jobsUpdates event.Dispatcher[JobsUpdate]
	logUpdates  event.Dispatcher[LogUpdate]
	runUpdates  event.Dispatcher[model.Run]
}

// New wires the orchestrator to its collaborators and starts the refresh
// timer when a scheduler is given.
func New(deps Deps, frequency time.Duration) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		loop:   deps.Loop,
		runs:   deps.Runs,
		jobs:   deps.Jobs,
		logs:   deps.Logs,
		log:    log.Named("selection"),
		ctx:    ctx,
		cancel: cancel,
	}

	o.teardown = append(o.teardown,
		o.jobs.AddInvalidationListener(o.onJobsInvalidated),
		o.logs.AddInvalidationListener(o.onLogInvalidated),
		o.runs.AddDataListener(o.onRunsChanged),
	)
	if deps.Scheduler != nil {
		if frequency <= 0 {
			frequency = DefaultFrequency
		}
		o.teardown = append(o.teardown, deps.Scheduler.Every(frequency, "selection refresh", o.Tick))
	}
	return o
}

func (o *Orchestrator) Runs() *RunLoader { return o.runs }

// SelectedRun returns the latest snapshot of the selected run.
func (o *Orchestrator) SelectedRun() (model.Run, bool) {
	if o.run == nil {
		return model.Run{}, false
	}
	return *o.run, true
}

func (o *Orchestrator) SelectedJob() int64 { return o.jobID }

func (o *Orchestrator) JobsSource() *JobsSource { return o.jobSrc }
func (o *Orchestrator) LogSource() *LogSource   { return o.logSrc }

func (o *Orchestrator) SubscribeJobsSource(fn func(*JobsSource)) func() {
	return o.jobsBound.Subscribe(fn)
}

func (o *Orchestrator) SubscribeLogSource(fn func(*LogSource)) func() {
	return o.logBound.Subscribe(fn)
}

func (o *Orchestrator) SubscribeJobs(fn func(JobsUpdate)) func() {
	return o.jobsUpdates.Subscribe(fn)
}

func (o *Orchestrator) SubscribeLog(fn func(LogUpdate)) func() {
	return o.logUpdates.Subscribe(fn)
}

// SubscribeRun reports refreshed snapshots of the selected run.
func (o *Orchestrator) SubscribeRun(fn func(model.Run)) func() {
	return o.runUpdates.Subscribe(fn)
}

// SelectRun binds the run's job list. Selecting a run whose jobs resolve to
// a different provider clears the job selection.
func (o *Orchestrator) SelectRun(key model.RunKey) {
	run, ok := o.runs.Find(key)
	if !ok {
		o.log.Debug("selected run is not loaded", zap.Stringer("run", key))
		o.ClearSelection()
		return
	}
	o.run = &run
	if o.bindJobs(run) {
		o.clearJob()
	}
}

func (o *Orchestrator) ClearSelection() {
	o.run = nil
	o.bindJobsSource(nil)
	o.clearJob()
}

// SelectJob binds the log of one of the selected run's jobs.
func (o *Orchestrator) SelectJob(jobID int64) {
	job, ok := o.findJob(jobID)
	if !ok || job.LogsURL() == "" {
		o.log.Debug("selected job is not loaded", zap.Int64("job_id", jobID))
		o.clearJob()
		return
	}
	o.jobID = jobID
	o.bindLog(o.logs.Get(job.LogsURL()))
}

func (o *Orchestrator) findJob(jobID int64) (model.Job, bool) {
	for _, j := range o.lastJobs {
		if j.ID == jobID {
			return j, true
		}
	}
	return model.Job{}, false
}

func (o *Orchestrator) clearJob() {
	o.jobID = 0
	o.bindLog(nil)
}

// bindJobs reports whether the bound jobs provider changed.
func (o *Orchestrator) bindJobs(run model.Run) bool {
	if run.JobsURL == "" {
		return o.bindJobsSource(nil)
	}
	return o.bindJobsSource(o.jobs.Get(run.JobsURL))
}

func (o *Orchestrator) bindJobsSource(src *JobsSource) bool {
	if src == o.jobSrc {
		return false
	}
	if o.unsubJobSrc != nil {
		o.unsubJobSrc()
		o.unsubJobSrc = nil
	}
	o.jobSrc = src
	o.jobsFuture = nil
	o.lastJobs = nil
	if src != nil {
		o.unsubJobSrc = src.Subscribe(func(provider.Changed) { o.requestJobs() })
	}
	o.jobsBound.Publish(src)
	o.requestJobs()
	return true
}

func (o *Orchestrator) bindLog(src *LogSource) {
	if src == o.logSrc {
		return
	}
	if o.unsubLogSrc != nil {
		o.unsubLogSrc()
		o.unsubLogSrc = nil
	}
	o.logSrc = src
	o.logFuture = nil
	if src != nil {
		o.unsubLogSrc = src.Subscribe(func(provider.Changed) { o.requestLog() })
	}
	o.logBound.Publish(src)
	o.requestLog()
}

func (o *Orchestrator) requestJobs() {
	src := o.jobSrc
	if src == nil || o.run == nil {
		return
	}
	run := *o.run
	f := src.Value()
	o.jobsFuture = f
	await(o, f, func() {
		o.jobsUpdates.Publish(JobsUpdate{Run: run, Pending: true})
	}, func(jobs []model.Job, err error) {
		if o.jobsFuture != f {
			return
		}
		if err == nil {
			o.lastJobs = jobs
		}
		o.jobsUpdates.Publish(JobsUpdate{Run: run, Jobs: jobs, Err: err})
	})
}

func (o *Orchestrator) requestLog() {
	src := o.logSrc
	if src == nil {
		return
	}
	jobID := o.jobID
	f := src.Value()
	o.logFuture = f
	await(o, f, func() {
		o.logUpdates.Publish(LogUpdate{JobID: jobID, Pending: true})
	}, func(l model.JobLog, err error) {
		if o.logFuture != f {
			return
		}
		o.logUpdates.Publish(LogUpdate{JobID: jobID, Log: l, Err: err})
	})
}

// await delivers f's result on the loop, immediately when f is already
// resolved, otherwise after pending has announced the wait.
func await[T any](o *Orchestrator, f *provider.Future[T], pending func(), done func(T, error)) {
	if v, ok, err := f.Result(); ok {
		done(v, err)
		return
	}
	pending()
	go func() {
		select {
		case <-f.Done():
		case <-o.ctx.Done():
			return
		}
		v, _, err := f.Result()
		o.loop.Post(func() {
			if o.ctx.Err() == nil {
				done(v, err)
			}
		})
	}()
}

func (o *Orchestrator) onJobsInvalidated(key string) {
	if o.jobSrc == nil || o.jobSrc.Key() != key || o.run == nil {
		return
	}
	o.log.Debug("bound jobs invalidated", zap.String("key", key))
	o.bindJobs(*o.run)
}

func (o *Orchestrator) onLogInvalidated(key string) {
	if o.logSrc == nil || o.logSrc.Key() != key {
		return
	}
	o.log.Debug("bound log invalidated", zap.String("key", key))
	o.bindLog(o.logs.Get(key))
}

func (o *Orchestrator) onRunsChanged(ev listloader.DataEvent[model.Run]) {
	if o.run == nil {
		return
	}
	// Rows come back as Added after a reset, so both lists are searched.
	for _, batch := range [][]model.Run{ev.Updated, ev.Added} {
		for _, r := range batch {
			if r.Key() == o.run.Key() {
				o.followRun(r)
				return
			}
		}
	}
}

// followRun swaps in a fresh snapshot of the selected run. A new attempt
// or a transition to completed triggers one reload of the bound providers;
// after a rerun the timer picks the run up again since it is live.
func (o *Orchestrator) followRun(r model.Run) {
	prev := *o.run
	o.run = &r
	o.runUpdates.Publish(r)

	if r.JobsURL != prev.JobsURL {
		if o.bindJobs(r) {
			o.clearJob()
		}
		return
	}
	newAttempt := !prev.SameAttempt(r)
	if newAttempt {
		o.log.Debug("selected run has a new attempt",
			zap.Stringer("run", r.Key()), zap.Int("attempt", r.RunAttempt))
	}
	if newAttempt || (!prev.Status.Terminal() && r.Status.Terminal()) {
		o.reloadBound()
	}
}

// Tick reloads the bound providers while the selected run is not finished.
func (o *Orchestrator) Tick() {
	if o.run == nil || o.run.Status.Terminal() {
		return
	}
	o.reloadBound()
}

func (o *Orchestrator) reloadBound() {
	if o.jobSrc != nil {
		o.jobSrc.Reload()
	}
	if o.logSrc != nil {
		o.logSrc.Reload()
	}
}

// ResetAllData drops the run list and every cached job list and log, then
// starts loading the run list again. Bound selections re-resolve through
// invalidation, and the selected run follows its reloaded row.
func (o *Orchestrator) ResetAllData() {
	o.runs.Reset()
	o.jobs.InvalidateAll()
	o.logs.InvalidateAll()
	o.runs.LoadMore(false)
}

// AfterAction forces a refresh once a cancel or rerun of run was accepted.
func (o *Orchestrator) AfterAction(run model.Run) {
	if run.JobsURL != "" {
		o.jobs.Invalidate(run.JobsURL)
	}
	o.runs.LoadMore(true)
}

// Close stops the refresh timer and detaches from every collaborator. The
// caches and the loader stay open; their owner closes them.
func (o *Orchestrator) Close() {
	o.cancel()
	for _, fn := range o.teardown {
		fn()
	}
	o.teardown = nil
	if o.unsubJobSrc != nil {
		o.unsubJobSrc()
		o.unsubJobSrc = nil
	}
	if o.unsubLogSrc != nil {
		o.unsubLogSrc()
		o.unsubLogSrc = nil
	}
	o.jobsBound.Clear()
	o.logBound.Clear()
	o.jobsUpdates.Clear()
	o.logUpdates.Clear()
	o.runUpdates.Clear()
}
