package jobs

import (
	"sync"

	"github.com/voxscribe/voxscribe/pkg/types"
)

// Store caches the job list and the usage snapshot between server fetches.
// The job list is kept most-recent-first; a freshly queued job is prepended
// so it shows up ahead of everything already listed. Usage is read-mostly:
// the upload pipeline reads it for validation and replaces it after every
// successful enqueue.
type Store struct {
	mu    sync.RWMutex
	jobs  []types.TranscriptionJob
	usage *types.Usage
}

// NewStore creates an empty store. Usage is "not loaded" until SetUsage is
// called, and the pipeline refuses to validate against an unloaded snapshot.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps the cached job list for a freshly fetched page.
func (s *Store) Replace(jobs []types.TranscriptionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append([]types.TranscriptionJob(nil), jobs...)
}

// Prepend puts a newly queued job at the head of the list.
func (s *Store) Prepend(job types.TranscriptionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append([]types.TranscriptionJob{job}, s.jobs...)
}

// Remove drops the job with the given ID, reporting whether it was present.
func (s *Store) Remove(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.ID == jobID {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// Jobs returns a snapshot copy of the cached list.
func (s *Store) Jobs() []types.TranscriptionJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.TranscriptionJob(nil), s.jobs...)
}

// First returns the most recent job, if any.
func (s *Store) First() (types.TranscriptionJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.jobs) == 0 {
		return types.TranscriptionJob{}, false
	}
	return s.jobs[0], true
}

// Len returns the number of cached jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// SetUsage replaces the quota snapshot.
func (s *Store) SetUsage(u types.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = &u
}

// Usage returns the quota snapshot and whether one has been loaded.
func (s *Store) Usage() (types.Usage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usage == nil {
		return types.Usage{}, false
	}
	return *s.usage, true
}
