package services

import "sync"

// JobLocks serialises mutations of a single job posting inside this process.
type JobLocks struct {
	mu    sync.Mutex
	locks map[uint]*jobLock
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

func NewJobLocks() *JobLocks {
	return &JobLocks{locks: make(map[uint]*jobLock)}
}

// Lock blocks until the caller owns jobID and returns the matching unlock func.
func (l *JobLocks) Lock(jobID uint) func() {
	l.mu.Lock()
	lk, ok := l.locks[jobID]
	if !ok {
		lk = &jobLock{}
		l.locks[jobID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()

	return func() {
		lk.mu.Unlock()

		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, jobID)
		}
		l.mu.Unlock()
	}
}
