// Package scheduler runs the poll-and-notify cycle on a cron schedule
// when the program is started in daemon mode.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service wraps a cron runner around the monitoring cycle.
type Service struct {
	spec string
	job  func() error
	cron *cron.Cron
}

// NewService creates a scheduler that runs job on the given cron spec
// (standard five-field form, UTC).
func NewService(spec string, job func() error) *Service {
	return &Service{
		spec: spec,
		job:  job,
		cron: cron.New(),
	}
}

// Start registers the job and begins the schedule.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		logrus.Info("Starting scheduled monitoring run")
		if err := s.job(); err != nil {
			logrus.Errorf("Scheduled monitoring run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with cron spec %q", s.spec)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
