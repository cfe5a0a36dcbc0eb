package pipeline

import (
	"time"

	"github.com/weftworks/weft/pkg/domain"
)

// snapshotLimit caps the input/output excerpts stored per trace entry.
const snapshotLimit = 500

// tracer accumulates the ordered generation trace for one invocation. It is
// exclusively owned by that invocation and never shared, so no locking is
// needed.
type tracer struct {
	entries []domain.TraceEntry
}

func (t *tracer) record(stage, input, output string, status domain.TraceStatus, err error, started time.Time) {
	entry := domain.TraceEntry{
		Stage:     stage,
		Input:     snapshot(input),
		Output:    snapshot(output),
		Timestamp: started,
		Duration:  time.Since(started),
		Status:    status,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	t.entries = append(t.entries, entry)
}

func (t *tracer) list() []domain.TraceEntry {
	return t.entries
}

func snapshot(s string) string {
	if len(s) <= snapshotLimit {
		return s
	}
	return s[:snapshotLimit] + "..."
}
