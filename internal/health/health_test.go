package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotComputesErrorRate(t *testing.T) {
	m := New(t.TempDir())

	m.RecordAPICall(200)
	m.RecordAPICall(200)
	m.RecordAPICall(500)
	m.RecordAPICall(0)

	snap := m.Snapshot()
	assert.Equal(t, 4, snap.APICalls5Min)
	assert.InDelta(t, 50.0, snap.APIErrorRate5Min, 0.01)
}

func TestSnapshotPrunesOldSamples(t *testing.T) {
	m := New(t.TempDir())

	m.mu.Lock()
	m.calls = append(m.calls, sample{at: time.Now().Add(-10 * time.Minute), status: 200})
	m.mu.Unlock()

	m.RecordAPICall(200)

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.APICalls5Min)
}

func TestSnapshotRecordsLastSuccessfulSync(t *testing.T) {
	m := New(t.TempDir())

	snap := m.Snapshot()
	assert.Zero(t, snap.LastSuccessfulSync)

	m.RecordSuccessfulSync()
	snap = m.Snapshot()
	assert.NotZero(t, snap.LastSuccessfulSync)
}

func TestSnapshotUptimeIsNonNegative(t *testing.T) {
	m := New(t.TempDir())
	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	assert.GreaterOrEqual(t, snap.UptimeSeconds, int64(0))
}
