package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// jobs tracks the running job of each project so it can be cancelled.
// At most one job runs per project in this process.
type jobs struct {
	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func newJobs() *jobs {
	return &jobs{running: make(map[string]context.CancelFunc)}
}

// begin registers a job for the project. The returned done must be called
// once the job has finished.
func (j *jobs) begin(parent context.Context, projectID string) (context.Context, func(), error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.running[projectID]; ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBusy, projectID)
	}
	ctx, cancel := context.WithCancel(parent)
	j.running[projectID] = cancel
	j.wg.Add(1)

	done := func() {
		j.mu.Lock()
		delete(j.running, projectID)
		j.mu.Unlock()
		cancel()
		j.wg.Done()
	}
	return ctx, done, nil
}

// cancel stops the project's job and reports whether one was running
func (j *jobs) cancel(projectID string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	cancel, ok := j.running[projectID]
	if ok {
		cancel()
	}
	return ok
}

func (j *jobs) isRunning(projectID string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.running[projectID]
	return ok
}

// keyedMutex serializes writers of one key while letting other keys proceed
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns its unlock function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func panelKey(projectID string, panel int) string {
	return fmt.Sprintf("%s:%d", projectID, panel)
}
