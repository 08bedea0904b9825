package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentNilWhenIdle(t *testing.T) {
	tr := NewTracker()

	assert.Nil(t, tr.Current())
}

func TestStartThenUpdateTracksProgress(t *testing.T) {
	tr := NewTracker()

	tr.Start("big.bin", Upload, 1000)
	tr.Update("big.bin", 250, 1000)

	op := tr.Current()
	require.NotNil(t, op)
	assert.Equal(t, "big.bin", op.File)
	assert.Equal(t, Upload, op.Action)
	assert.EqualValues(t, 250, op.BytesDone)
	assert.EqualValues(t, 1000, op.BytesTotal)
	assert.InDelta(t, 25.0, op.ProgressPct, 0.001)
}

func TestUpdateIgnoredForDifferentFile(t *testing.T) {
	tr := NewTracker()

	tr.Start("a.bin", Download, 100)
	tr.Update("b.bin", 50, 100)

	op := tr.Current()
	require.NotNil(t, op)
	assert.EqualValues(t, 0, op.BytesDone)
}

func TestClearEndsTrackingForMatchingFile(t *testing.T) {
	tr := NewTracker()

	tr.Start("a.bin", Download, 100)
	tr.Clear("a.bin")

	assert.Nil(t, tr.Current())
}

func TestClearIgnoredForDifferentFile(t *testing.T) {
	tr := NewTracker()

	tr.Start("a.bin", Download, 100)
	tr.Clear("b.bin")

	assert.NotNil(t, tr.Current())
}

func TestCurrentReturnsCopyNotSharedPointer(t *testing.T) {
	tr := NewTracker()

	tr.Start("a.bin", Download, 100)
	snap := tr.Current()
	tr.Update("a.bin", 50, 100)

	assert.EqualValues(t, 0, snap.BytesDone)
}
