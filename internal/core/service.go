package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/csvmatch/internal/config"
	"github.com/google/uuid"
)

// Service runs match jobs and keeps their history.
type Service struct {
	cfg     *config.Config
	limiter *JobLimiter
	worker  *Worker
	history HistoryStore
}

// MatchRequest names two input files already on local disk. The files are
// owned by the caller, which must delete them after the result is consumed.
type MatchRequest struct {
	File1Name string // original name of the file providing the header order
	File1Path string
	File2Name string // original name of the file providing the data rows
	File2Path string
}

// MatchResult is a completed match.
type MatchResult struct {
	ID          string
	Records     ResultSet
	CSV         []byte
	Rows        int
	Columns     int
	Duration    time.Duration
	CompletedAt time.Time
}

// NewService creates a Service. If history is nil, an in-memory store is used.
func NewService(history HistoryStore, cfg *config.Config) *Service {
	if history == nil {
		history = NewMemoryHistory(cfg.History.MemoryLimit)
	}
	return &Service{
		cfg:     cfg,
		limiter: NewJobLimiter(cfg.Match.MaxConcurrent, cfg.Match.MaxWaitTime),
		worker:  NewWorker(cfg.Match.MaxFileSize),
		history: history,
	}
}

// Match aligns req.File2Path onto the header of req.File1Path and serializes
// the result. It waits for a job slot first and records the outcome in the
// match history whether or not it succeeded.
func (s *Service) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	id := uuid.New().String()
	ctx = ContextWithJobID(ctx, id)

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.Match.JobTimeout)
	defer cancel()

	start := time.Now()
	rs, err := s.worker.Run(jobCtx, req.File1Path, req.File2Path)

	var data []byte
	if err == nil {
		data, err = MarshalCSV(rs)
	}

	result := &MatchResult{
		ID:          id,
		Records:     rs,
		CSV:         data,
		Rows:        len(rs),
		Duration:    time.Since(start),
		CompletedAt: time.Now().UTC(),
	}
	if len(rs) > 0 {
		result.Columns = len(rs[0])
	}

	s.recordHistory(ctx, req, result, err)

	if err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	return result, nil
}

func (s *Service) recordHistory(ctx context.Context, req MatchRequest, result *MatchResult, matchErr error) {
	rec := MatchRecord{
		ID:        result.ID,
		File1Name: req.File1Name,
		File2Name: req.File2Name,
		Status:    StatusSucceeded,
		Rows:      result.Rows,
		Columns:   result.Columns,
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		Duration:  result.Duration,
		CreatedAt: result.CompletedAt,
	}
	if matchErr != nil {
		rec.Status = StatusFailed
		if IsBadInput(matchErr) {
			rec.Status = StatusRejected
		}
		rec.Error = matchErr.Error()
		rec.ErrorCode = MapError(matchErr).Code
	}

	// The request may already be cancelled; the history write should still land.
	if err := s.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("failed to record match history", "job_id", rec.ID, "error", err)
	}
}

// History returns the most recent matches, newest first. A non-positive
// limit uses the configured default; larger limits are capped.
func (s *Service) History(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = s.cfg.History.ListLimit
	}
	if maxLimit := max(s.cfg.History.MaxListLimit, s.cfg.History.ListLimit); limit > maxLimit {
		limit = maxLimit
	}
	return s.history.Recent(ctx, limit)
}

// GetMatch returns a single history entry.
func (s *Service) GetMatch(ctx context.Context, id string) (*MatchRecord, error) {
	return s.history.Get(ctx, id)
}

// LimiterStatus returns the job limiter's current state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForJobs blocks until in-flight matches finish or ctx ends.
func (s *Service) WaitForJobs(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
