package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const dateLayout = "2006-01-02"

// AuditEntry records one update request
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject,omitempty"` // token subject, or "api-key"
	Action    string    `json:"action"`
	Request   string    `json:"request"`
	Backend   string    `json:"backend"`
	Success   bool      `json:"success"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty"`
	ErrorMsg  string    `json:"error_message,omitempty"`
	Duration  float64   `json:"duration_ms"`
}

// AuditLog represents a day's worth of audit entries
type AuditLog struct {
	Date    string       `json:"date"` // YYYY-MM-DD format
	Entries []AuditEntry `json:"entries"`
}

// AuditLogger keeps the update journal as one JSON file per day. A lock
// file keeps several endpoint processes sharing a directory from
// interleaving writes.
type AuditLogger struct {
	dataDir  string
	mutex    sync.RWMutex
	lockFile *flock.Flock
}

// NewAuditLogger creates the journal directory if needed
func NewAuditLogger(dataDir string) (*AuditLogger, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &AuditLogger{
		dataDir:  dataDir,
		lockFile: flock.New(filepath.Join(dataDir, ".journal.lock")),
	}, nil
}

func (l *AuditLogger) fileFor(date string) string {
	return filepath.Join(l.dataDir, fmt.Sprintf("updates_%s.json", date))
}

// LogEntry appends an entry to the journal of its day
func (l *AuditLogger) LogEntry(entry AuditEntry) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	locked, err := l.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire lock")
	}
	defer func() { _ = l.lockFile.Unlock() }()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	date := entry.Timestamp.Format(dateLayout)
	logFile := l.fileFor(date)

	log, err := l.read(date)
	if err != nil {
		return err
	}
	log.Entries = append(log.Entries, entry)

	// Write to temp file first (atomic write)
	tempFile := logFile + ".tmp"
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, logFile); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// read loads the log of a date; a missing file is an empty log.
func (l *AuditLogger) read(date string) (AuditLog, error) {
	log := AuditLog{Date: date, Entries: []AuditEntry{}}
	data, err := os.ReadFile(l.fileFor(date))
	if err != nil {
		if os.IsNotExist(err) {
			return log, nil
		}
		return log, fmt.Errorf("failed to read log file: %w", err)
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return log, fmt.Errorf("failed to parse log file: %w", err)
	}
	return log, nil
}

// GetEntriesForDate retrieves all entries for a specific date
func (l *AuditLogger) GetEntriesForDate(date string) ([]AuditEntry, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	log, err := l.read(date)
	if err != nil {
		return nil, err
	}
	return log.Entries, nil
}

// GetEntriesRange retrieves all entries within a date range
func (l *AuditLogger) GetEntriesRange(startDate, endDate string) ([]AuditEntry, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}

	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	l.mutex.RLock()
	defer l.mutex.RUnlock()

	var allEntries []AuditEntry
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		log, err := l.read(date.Format(dateLayout))
		if err != nil {
			// Skip unreadable days
			continue
		}
		allEntries = append(allEntries, log.Entries...)
	}

	return allEntries, nil
}

// ListLogFiles returns the journal files, oldest first
func (l *AuditLogger) ListLogFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(l.dataDir, "updates_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal files: %w", err)
	}
	return files, nil
}

// RotateOldLogs removes the journal files of days older than daysToKeep
// and returns how many were removed.
func (l *AuditLogger) RotateOldLogs(daysToKeep int) (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cutoff := time.Now().AddDate(0, 0, -daysToKeep).Format(dateLayout)

	files, err := l.ListLogFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range files {
		date := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "updates_"), ".json")
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		if date < cutoff {
			if err := os.Remove(file); err != nil {
				return removed, fmt.Errorf("failed to remove old journal file: %w", err)
			}
			removed++
		}
	}

	return removed, nil
}

// SearchEntries searches for entries matching criteria
func (l *AuditLogger) SearchEntries(criteria AuditSearchCriteria) ([]AuditEntry, error) {
	entries, err := l.GetEntriesRange(criteria.StartDate, criteria.EndDate)
	if err != nil {
		return nil, err
	}

	var filtered []AuditEntry
	for _, entry := range entries {
		if matchesCriteria(entry, criteria) {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

// AuditSearchCriteria defines search parameters for the journal
type AuditSearchCriteria struct {
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Subject   string
	Action    string
	Success   *bool // nil = all
	IPAddress string
}

func matchesCriteria(entry AuditEntry, criteria AuditSearchCriteria) bool {
	if criteria.Subject != "" && entry.Subject != criteria.Subject {
		return false
	}

	if criteria.Action != "" && entry.Action != criteria.Action {
		return false
	}

	if criteria.Success != nil && entry.Success != *criteria.Success {
		return false
	}

	if criteria.IPAddress != "" && entry.IPAddress != criteria.IPAddress {
		return false
	}

	return true
}
