package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes stale work directories left behind by crashed or killed jobs
type Sweeper struct {
	roots  []string
	maxAge time.Duration
	cron   *cron.Cron
	mu     sync.Mutex
	now    func() time.Time
}

// NewSweeper watches the direct children of each root
func NewSweeper(maxAge time.Duration, roots ...string) *Sweeper {
	return &Sweeper{
		roots:  roots,
		maxAge: maxAge,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start schedules Sweep, e.g. "@hourly" or "0 * * * *"
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		n, err := s.Sweep()
		if err != nil {
			log.Printf("sweeper: %v", err)
		}
		if n > 0 {
			log.Printf("sweeper: removed %d stale work directories", n)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}
	s.cron.Start()
	log.Printf("Sweeper started with schedule: %s (max age %s)", schedule, s.maxAge)
	return nil
}

// Stop waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep removes every directory under the roots not modified within maxAge
func (s *Sweeper) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	var firstErr error
	for _, root := range s.roots {
		entries, err := os.ReadDir(root)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("read %s: %w", root, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			if err := os.RemoveAll(dir); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("remove %s: %w", dir, err)
				}
				continue
			}
			removed++
		}
	}
	return removed, firstErr
}
