package pipeline

import (
	"fmt"
	"log"
	"sync"
	"time"

	"comicreel/config"
	"comicreel/types"
)

// logBook keeps the most recent log entries of every project
type logBook struct {
	mu      sync.RWMutex
	entries map[string][]types.LogEntry
	maxLogs int
}

func newLogBook(maxLogs int) *logBook {
	if maxLogs <= 0 {
		maxLogs = config.MaxLogs
	}
	return &logBook{entries: make(map[string][]types.LogEntry), maxLogs: maxLogs}
}

// Add appends a line for the project and mirrors it to the process log
func (b *logBook) Add(projectID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("project %s: %s", projectID, msg)

	b.mu.Lock()
	defer b.mu.Unlock()

	logs := append(b.entries[projectID], types.LogEntry{Timestamp: time.Now(), Message: msg})
	if len(logs) > b.maxLogs {
		logs = logs[len(logs)-b.maxLogs:]
	}
	b.entries[projectID] = logs
}

// Snapshot returns a copy of the project's entries, oldest first
func (b *logBook) Snapshot(projectID string) []types.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]types.LogEntry{}, b.entries[projectID]...)
}
