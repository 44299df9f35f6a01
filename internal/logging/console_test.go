package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConsoleLines(t *testing.T) {
	tests := []struct {
		name  string
		print func(c *Console)
		want  string
	}{
		{"info", func(c *Console) { c.Info("📥️ Loaded triples from %s, for a total of %s", c.Bold("a.ttl"), c.Bold(3)) },
			"INFO: 📥️ Loaded triples from a.ttl, for a total of 3\n"},
		{"warn", func(c *Console) { c.Warn("no file matches %q", "*.nt") }, "WARN: no file matches \"*.nt\"\n"},
		{"error", func(c *Console) { c.Error("🚫 boom") }, "ERROR: 🚫 boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(NewPlainConsole(&buf))
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestColoredConsole(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{out: &buf, color: true}
	c.Error("x")
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes in %q", buf.String())
	}
}

func TestBadgerLoggerDemotesInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)
	b := NewBadgerLogger(logrus.NewEntry(l))
	b.Infof("compaction %d", 1)
	if buf.Len() != 0 {
		t.Errorf("info should be hidden at info level, got %q", buf.String())
	}
	b.Warningf("disk %s", "full")
	if !strings.Contains(buf.String(), "component=badger") {
		t.Errorf("missing component field in %q", buf.String())
	}
}
