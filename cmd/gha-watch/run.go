package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/api"
	"github.com/altinukshini/gha-watch/internal/config"
	"github.com/altinukshini/gha-watch/internal/coord"
	"github.com/altinukshini/gha-watch/internal/fetchcache"
	"github.com/altinukshini/gha-watch/internal/listloader"
	"github.com/altinukshini/gha-watch/internal/logging"
	"github.com/altinukshini/gha-watch/internal/logstore"
	"github.com/altinukshini/gha-watch/internal/model"
	"github.com/altinukshini/gha-watch/internal/provider"
	"github.com/altinukshini/gha-watch/internal/selection"
	"github.com/altinukshini/gha-watch/internal/sources"
	"github.com/altinukshini/gha-watch/internal/tui"
)

// core is everything that lives on the coordination loop.
type core struct {
	runs *selection.RunLoader
	jobs *selection.JobsCache
	logs *selection.LogsCache
	orch *selection.Orchestrator
}

func (c *core) close() {
	c.orch.Close()
	c.runs.Close()
	c.jobs.Close()
	c.logs.Close()
}

func runWatch(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("repo", cfg.RepoNWO()), zap.String("version", version))

	client, err := api.NewClient(api.Options{
		Owner:     cfg.Owner,
		Repo:      cfg.Repo,
		Token:     cfg.Token,
		BaseURL:   cfg.APIURL,
		RateLimit: cfg.RateLimit,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("%w (set GH_TOKEN or run gh auth login)", err)
	}

	store, err := logstore.New(cfg.LogCacheDir, cfg.LogCacheSizeMB, cfg.LogCacheTTL, log)
	if err != nil {
		return err
	}
	if err := store.Evict(); err != nil {
		log.Warn("log store eviction failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := coord.NewLoop(log)
	go loop.Run(ctx)
	pool := coord.NewPool(loop, cfg.Workers)
	sched := coord.NewScheduler(loop, log)

	c, err := newCore(pool, sched, client, store, cfg, log)
	if err != nil {
		return err
	}

	app := tui.NewApp(cfg, loop, c.orch, client)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	var detach func()
	if err := loop.Call(ctx, func() {
		detach = tui.Attach(c.orch, client.RateLimit, p.Send)
		c.runs.StartPolling(sched, cfg.PollInterval)
	}); err != nil {
		return err
	}
	sched.Start()

	_, runErr := p.Run()

	sched.Stop()
	if err := loop.Call(context.Background(), func() {
		detach()
		c.close()
	}); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	cancel()
	<-loop.Done()
	pool.Wait()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

func newCore(pool *coord.Pool, sched *coord.Scheduler, client *api.Client, store *logstore.Store, cfg config.Config, log *zap.Logger) (*core, error) {
	c := &core{
		runs: listloader.New(pool, listloader.Config{Name: "runs", PageSize: cfg.PageSize, Logger: log},
			sources.RunsPage(client, cfg.RunsFilter()), model.Run.Key),
	}

	var err error
	c.jobs, err = fetchcache.New(pool, fetchcache.Config{Name: "jobs", Capacity: cfg.CacheSize, Logger: log},
		sources.Jobs(client), provider.WithFallback([]model.Job{}))
	if err != nil {
		return nil, err
	}
	c.logs, err = fetchcache.New(pool, fetchcache.Config{Name: "logs", Capacity: cfg.CacheSize, Logger: log},
		sources.JobLog(client, store, log))
	if err != nil {
		return nil, err
	}

	err = pool.Loop().Call(context.Background(), func() {
		c.orch = selection.New(selection.Deps{
			Loop:      pool.Loop(),
			Scheduler: sched,
			Runs:      c.runs,
			Jobs:      c.jobs,
			Logs:      c.logs,
			Logger:    log,
		}, cfg.RefreshInterval)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
