// Package memory is an in-memory implementation of store.Store, used by
// unit tests and as a dependency-free way to run the scheduler without a
// live Postgres instance.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/r3e-collective/tsdata-scheduler/internal/apperrors"
	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

// Store is a mutex-guarded, map-backed store.Store implementation.
type Store struct {
	mu sync.Mutex

	assets       map[int64]domain.Asset
	assetsByKey  map[string]int64
	nextAssetID  int64

	marketData   map[int64][]domain.MarketDataRow
	rates        map[string]map[int64][]domain.RateRow
	economicData map[int64][]domain.EconomicDataRow

	jobs map[string]domain.ScheduledJob

	executions   map[int64]domain.JobExecution
	nextExecID   int64

	logs       map[int64]domain.CollectionLog
	nextLogID  int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		assets:       make(map[int64]domain.Asset),
		assetsByKey:  make(map[string]int64),
		marketData:   make(map[int64][]domain.MarketDataRow),
		rates:        map[string]map[int64][]domain.RateRow{string(domain.TableForexRates): {}, string(domain.TableBondRates): {}},
		economicData: make(map[int64][]domain.EconomicDataRow),
		jobs:         make(map[string]domain.ScheduledJob),
		executions:   make(map[int64]domain.JobExecution),
		logs:         make(map[int64]domain.CollectionLog),
	}
}

func assetKey(symbol string, assetType domain.AssetType) string {
	return string(assetType) + ":" + symbol
}

// GetOrCreateAsset implements store.AssetStore.
func (s *Store) GetOrCreateAsset(ctx context.Context, symbol string, assetType domain.AssetType, metadata map[string]string) (domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assetKey(symbol, assetType)
	if id, ok := s.assetsByKey[key]; ok {
		a := s.assets[id]
		if a.Metadata == nil {
			a.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			a.Metadata[k] = v
		}
		a.UpdatedAt = time.Now().UTC()
		s.assets[id] = a
		return a, nil
	}

	s.nextAssetID++
	now := time.Now().UTC()
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	a := domain.Asset{ID: s.nextAssetID, Symbol: symbol, AssetType: assetType, Metadata: md, CreatedAt: now, UpdatedAt: now}
	s.assets[a.ID] = a
	s.assetsByKey[key] = a.ID
	return a, nil
}

// GetAsset implements store.AssetStore.
func (s *Store) GetAsset(ctx context.Context, id int64) (domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return domain.Asset{}, apperrors.NotFound("asset", "")
	}
	return a, nil
}

// MaxTime implements store.AssetStore.
func (s *Store) MaxTime(ctx context.Context, assetID int64, table domain.TargetTable) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max time.Time
	found := false
	switch table {
	case domain.TableMarketData:
		for _, r := range s.marketData[assetID] {
			if !found || r.Time.After(max) {
				max, found = r.Time, true
			}
		}
	case domain.TableForexRates, domain.TableBondRates:
		for _, r := range s.rates[string(table)][assetID] {
			if !found || r.Time.After(max) {
				max, found = r.Time, true
			}
		}
	case domain.TableEconomicData:
		for _, r := range s.economicData[assetID] {
			if !found || r.Time.After(max) {
				max, found = r.Time, true
			}
		}
	}
	return max, found, nil
}

// Upsert implements store.TimeSeriesStore. Primary key (asset_id, time):
// a row at an existing timestamp overwrites, matching the Postgres
// implementation's ON CONFLICT behavior.
func (s *Store) Upsert(ctx context.Context, rows domain.MappedRows) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	switch rows.Table {
	case domain.TableMarketData:
		for _, row := range rows.MarketData {
			existing := s.marketData[row.AssetID]
			replaced := false
			for i, e := range existing {
				if e.Time.Equal(row.Time) {
					existing[i] = row
					replaced = true
					break
				}
			}
			if !replaced {
				existing = append(existing, row)
			}
			s.marketData[row.AssetID] = existing
			written++
		}
	case domain.TableForexRates, domain.TableBondRates:
		bucket := s.rates[string(rows.Table)]
		if bucket == nil {
			bucket = make(map[int64][]domain.RateRow)
			s.rates[string(rows.Table)] = bucket
		}
		for _, row := range rows.Rates {
			existing := bucket[row.AssetID]
			replaced := false
			for i, e := range existing {
				if e.Time.Equal(row.Time) {
					existing[i] = row
					replaced = true
					break
				}
			}
			if !replaced {
				existing = append(existing, row)
			}
			bucket[row.AssetID] = existing
			written++
		}
	case domain.TableEconomicData:
		for _, row := range rows.EconomicData {
			existing := s.economicData[row.AssetID]
			replaced := false
			for i, e := range existing {
				if e.Time.Equal(row.Time) {
					existing[i] = row
					replaced = true
					break
				}
			}
			if !replaced {
				existing = append(existing, row)
			}
			s.economicData[row.AssetID] = existing
			written++
		}
	}
	return written, nil
}

// CreateJob implements store.JobStore.
func (s *Store) CreateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.JobID == "" {
		return domain.ScheduledJob{}, apperrors.New(domain.ErrorCategoryValidation, "job_id required")
	}
	if _, exists := s.jobs[job.JobID]; exists {
		return domain.ScheduledJob{}, apperrors.Conflict("job_id already exists: " + job.JobID)
	}
	s.jobs[job.JobID] = job
	return job, nil
}

// UpdateJob implements store.JobStore.
func (s *Store) UpdateJob(ctx context.Context, job domain.ScheduledJob) (domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.JobID]; !exists {
		return domain.ScheduledJob{}, apperrors.NotFound("job", job.JobID)
	}
	s.jobs[job.JobID] = job
	return job, nil
}

// GetJob implements store.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ScheduledJob{}, apperrors.NotFound("job", jobID)
	}
	return job, nil
}

// ListJobs implements store.JobStore.
func (s *Store) ListJobs(ctx context.Context) ([]domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out, nil
}

// ListJobsByStatus implements store.JobStore.
func (s *Store) ListJobsByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[domain.JobStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []domain.ScheduledJob
	for _, j := range s.jobs {
		if want[j.Status] {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out, nil
}

// ListDueJobs implements store.JobStore.
func (s *Store) ListDueJobs(ctx context.Context, asOf time.Time) ([]domain.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScheduledJob
	for _, j := range s.jobs {
		if j.Status == domain.JobStatusActive && j.NextRunAt != nil && !j.NextRunAt.After(asOf) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out, nil
}

// DeleteJob implements store.JobStore.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return apperrors.NotFound("job", jobID)
	}
	delete(s.jobs, jobID)
	return nil
}

// CreateExecution implements store.ExecutionStore.
func (s *Store) CreateExecution(ctx context.Context, exec domain.JobExecution) (domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExecID++
	exec.ExecutionID = s.nextExecID
	s.executions[exec.ExecutionID] = exec
	return exec, nil
}

// UpdateExecution implements store.ExecutionStore.
func (s *Store) UpdateExecution(ctx context.Context, exec domain.JobExecution) (domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ExecutionID] = exec
	return exec, nil
}

// ListExecutions implements store.ExecutionStore, newest-first per §6.
func (s *Store) ListExecutions(ctx context.Context, jobID string) ([]domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JobExecution
	for _, e := range s.executions {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out, nil
}

// ListRunningOlderThan implements store.ExecutionStore.
func (s *Store) ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JobExecution
	for _, e := range s.executions {
		if e.ExecutionStatus == domain.ExecutionStatusRunning && e.StartedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateCollectionLog implements store.CollectionLogStore.
func (s *Store) CreateCollectionLog(ctx context.Context, log domain.CollectionLog) (domain.CollectionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	log.LogID = s.nextLogID
	log.CreatedAt = time.Now().UTC()
	s.logs[log.LogID] = log
	return log, nil
}

// ListCollectionLogs implements store.CollectionLogStore, newest-first.
func (s *Store) ListCollectionLogs(ctx context.Context, limit int) ([]domain.CollectionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CollectionLog, 0, len(s.logs))
	for _, l := range s.logs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordAttemptOutcome implements store.SchedulerTransactor. The in-memory
// store's single mutex makes the combined update atomic for free.
func (s *Store) RecordAttemptOutcome(ctx context.Context, exec domain.JobExecution, job domain.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ExecutionID] = exec
	s.jobs[job.JobID] = job
	return nil
}
