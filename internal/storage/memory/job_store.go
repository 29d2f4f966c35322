// Package memory provides in-process stores for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

// StoredJob is a persisted record with its assigned ID and benefits.
type StoredJob struct {
	ID       string
	Record   crawler.Record
	Benefits []string
}

// JobStore keeps jobs keyed by source URL, mirroring the unique index of the
// relational schema.
type JobStore struct {
	mu    sync.RWMutex
	seq   int
	jobs  map[string]*StoredJob
	byURL map[string]string
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:  make(map[string]*StoredJob),
		byURL: make(map[string]string),
	}
}

// InsertJob stores rec and returns its ID. A second insert for the same
// source URL fails with crawler.ErrDuplicateJob.
func (s *JobStore) InsertJob(_ context.Context, rec crawler.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byURL[rec.SourceURL]; exists {
		return "", fmt.Errorf("insert %s: %w", rec.SourceURL, crawler.ErrDuplicateJob)
	}
	s.seq++
	id := fmt.Sprintf("job-%d", s.seq)
	rec.Benefits = append([]string(nil), rec.Benefits...)
	s.jobs[id] = &StoredJob{ID: id, Record: rec}
	s.byURL[rec.SourceURL] = id
	return id, nil
}

// InsertBenefits attaches benefit names to an existing job.
func (s *JobStore) InsertBenefits(_ context.Context, jobID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.Benefits = append(job.Benefits, names...)
	return nil
}

// ExistsBySourceURL reports whether a job with sourceURL is stored.
func (s *JobStore) ExistsBySourceURL(_ context.Context, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[sourceURL]
	return ok, nil
}

// Jobs returns a copy of every stored job in insertion order.
func (s *JobStore) Jobs() []StoredJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StoredJob, 0, len(s.jobs))
	for i := 1; i <= s.seq; i++ {
		job, ok := s.jobs[fmt.Sprintf("job-%d", i)]
		if !ok {
			continue
		}
		cp := *job
		cp.Benefits = append([]string(nil), job.Benefits...)
		out = append(out, cp)
	}
	return out
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
