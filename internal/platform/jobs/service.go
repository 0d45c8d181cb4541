package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ems/internal/domain/core"
	"ems/internal/platform/config"
	"ems/internal/platform/querier"
)

const (
	JobDeptManagerSweep   = "dept_manager_sweep"
	JobAnnouncementExpiry = "announcement_expiry"

	SystemActor = "system"
)

type Sweeper interface {
	ReconcileAll(ctx context.Context, actorID string) (core.SweepResult, error)
}

type Expirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

// RunStore records every job execution in job_runs.
type RunStore interface {
	StartRun(ctx context.Context, jobType string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
}

type Service struct {
	Runs    RunStore
	Cfg     config.Config
	Sweeper Sweeper
	Expirer Expirer
	queue   chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(runs RunStore, cfg config.Config, sweeper Sweeper, expirer Expirer) *Service {
	return &Service{
		Runs:    runs,
		Cfg:     cfg,
		Sweeper: sweeper,
		Expirer: expirer,
		queue:   make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.DeptReconcileInterval > 0 && s.Sweeper != nil {
		go s.schedule(ctx, s.Cfg.DeptReconcileInterval, JobDeptManagerSweep, s.sweepDepartments)
	}
	if s.Cfg.AnnouncementExpiryInterval > 0 && s.Expirer != nil {
		go s.schedule(ctx, s.Cfg.AnnouncementExpiryInterval, JobAnnouncementExpiry, s.expireAnnouncements)
	}
}

// Enqueue drops the job when the queue is full; the next tick retries it.
func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// SweepNow runs the department manager sweep synchronously.
func (s *Service) SweepNow(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobDeptManagerSweep, s.sweepDepartments)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.StartRun(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
		details = map[string]any{"error": err.Error(), "result": details}
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, interval time.Duration, jobType string, run func(context.Context) (any, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType, run)
		}
	}
}

func (s *Service) sweepDepartments(ctx context.Context) (any, error) {
	return s.Sweeper.ReconcileAll(ctx, SystemActor)
}

func (s *Service) expireAnnouncements(ctx context.Context) (any, error) {
	expired, err := s.Expirer.ExpireDue(ctx)
	return map[string]any{"expired": expired}, err
}

type PGRunStore struct {
	DB querier.Querier
}

func (p PGRunStore) StartRun(ctx context.Context, jobType string) (string, error) {
	var id string
	err := p.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1, 'running')
    RETURNING id
  `, jobType).Scan(&id)
	return id, err
}

func (p PGRunStore) FinishRun(ctx context.Context, runID, status string, details []byte) error {
	_, err := p.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}
