package coord

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler fires periodic jobs on the loop. It is safe to use from any
// goroutine.
type Scheduler struct {
	loop *Loop
	cron *cron.Cron
	log  *zap.Logger
}

func NewScheduler(loop *Loop, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		loop: loop,
		cron: cron.New(),
		log:  log.Named("scheduler"),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Every posts fn to the loop each interval, rounded to whole seconds with
// a one second floor. The returned func cancels the schedule.
func (s *Scheduler) Every(interval time.Duration, name string, fn func()) (cancel func()) {
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if !s.loop.Post(fn) {
			s.log.Debug("tick dropped, loop closed", zap.String("job", name))
		}
	}))
	s.log.Debug("scheduled", zap.String("job", name), zap.Duration("interval", interval))
	return func() { s.cron.Remove(id) }
}
