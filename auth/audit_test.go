package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLoggerDailyFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	l, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatalf("NewAuditLogger() error = %v", err)
	}

	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	entries := []AuditEntry{
		{Timestamp: day, Subject: "loader", Action: "update", Request: "CLEAR ALL", Success: true, IPAddress: "10.0.0.1"},
		{Timestamp: day.Add(time.Hour), Subject: "api-key", Action: "update", Request: "INSERT DATA {}", Success: false, ErrorMsg: "boom"},
		{Timestamp: day.AddDate(0, 0, 1), Subject: "loader", Action: "update", Request: "DROP ALL", Success: true},
	}
	for _, e := range entries {
		if err := l.LogEntry(e); err != nil {
			t.Fatalf("LogEntry() error = %v", err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "updates_2026-03-02.json")); err != nil {
		t.Errorf("expected a journal file for the first day: %v", err)
	}

	got, err := l.GetEntriesForDate("2026-03-02")
	if err != nil || len(got) != 2 {
		t.Fatalf("GetEntriesForDate() = %d entries, %v", len(got), err)
	}

	none, err := l.GetEntriesForDate("2020-01-01")
	if err != nil || len(none) != 0 {
		t.Errorf("missing day should be empty, got %d, %v", len(none), err)
	}

	success := true
	tests := []struct {
		name     string
		criteria AuditSearchCriteria
		want     int
	}{
		{"all", AuditSearchCriteria{StartDate: "2026-03-01", EndDate: "2026-03-04"}, 3},
		{"subject", AuditSearchCriteria{StartDate: "2026-03-01", EndDate: "2026-03-04", Subject: "loader"}, 2},
		{"success", AuditSearchCriteria{StartDate: "2026-03-01", EndDate: "2026-03-04", Success: &success}, 2},
		{"ip", AuditSearchCriteria{StartDate: "2026-03-02", EndDate: "2026-03-02", IPAddress: "10.0.0.1"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := l.SearchEntries(tt.criteria)
			if err != nil {
				t.Fatalf("SearchEntries() error = %v", err)
			}
			if len(found) != tt.want {
				t.Errorf("SearchEntries() = %d entries, want %d", len(found), tt.want)
			}
		})
	}

	if _, err := l.GetEntriesRange("bad", "2026-03-02"); err == nil {
		t.Error("GetEntriesRange() should reject a bad start date")
	}
}

func TestRotateOldLogs(t *testing.T) {
	l, err := NewAuditLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -100)
	for _, ts := range []time.Time{old, time.Now()} {
		if err := l.LogEntry(AuditEntry{Timestamp: ts, Action: "update", Success: true}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := l.RotateOldLogs(90)
	if err != nil {
		t.Fatalf("RotateOldLogs() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d files, want 1", removed)
	}
	files, err := l.ListLogFiles()
	if err != nil || len(files) != 1 {
		t.Errorf("ListLogFiles() = %v, %v", files, err)
	}
}
