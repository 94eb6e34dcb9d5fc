package dlog

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestDelayedRegistry_SuppressesWithinPeriod(t *testing.T) {
	var buf bytes.Buffer
	base := log.NewWithOptions(&buf, log.Options{})
	reg := NewDelayedRegistry(base, time.Minute)

	fakeNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return fakeNow }

	for i := 0; i < 10; i++ {
		reg.Report("v1190:TDC0", 2, "Hit error detected in group 0")
	}

	out := buf.String()
	// Only the first occurrence should have been printed.
	assert.Equal(t, 1, countOccurrences(out, "Hit error detected"))
}

func TestDelayedRegistry_ReprintsAfterPeriod(t *testing.T) {
	var buf bytes.Buffer
	base := log.NewWithOptions(&buf, log.Options{})
	reg := NewDelayedRegistry(base, time.Second)

	fakeNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return fakeNow }

	reg.Report("v1190:TDC0", 13, "L1 buffer overflow")
	fakeNow = fakeNow.Add(2 * time.Second)
	reg.Report("v1190:TDC0", 13, "L1 buffer overflow")

	assert.Equal(t, 2, countOccurrences(buf.String(), "L1 buffer overflow"))
}

func TestDelayedRegistry_FlushAllPrintsSuppressedCount(t *testing.T) {
	var buf bytes.Buffer
	base := log.NewWithOptions(&buf, log.Options{})
	reg := NewDelayedRegistry(base, time.Hour)
	fakeNow := time.Now()
	reg.now = func() time.Time { return fakeNow }

	reg.Report("v1190:TDC0", 0, "Hit lost in group 0 from FIFO overflow")
	reg.Report("v1190:TDC0", 0, "Hit lost in group 0 from FIFO overflow")
	reg.Report("v1190:TDC0", 0, "Hit lost in group 0 from FIFO overflow")

	reg.FlushAll()
	assert.Contains(t, buf.String(), "suppressed_since_last")
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
