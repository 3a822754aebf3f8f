package uploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_TerminalStateIsSticky(t *testing.T) {
	t.Parallel()

	task := NewTask("a.jpg", 100, "image/jpeg", 1, nil)
	task.Start()

	assert.True(t, task.finish(StatusFailed))
	assert.Equal(t, StatusFailed, task.Status())

	// A terminal task never transitions again.
	assert.False(t, task.finish(StatusComplete))
	assert.Equal(t, StatusFailed, task.Status())
	assert.False(t, task.finish(StatusCancelled))
	assert.Equal(t, StatusFailed, task.Status())
}

func TestTask_ChunkCompletionIsMonotone(t *testing.T) {
	t.Parallel()

	task := NewTask("a.bin", 30, "application/octet-stream", 3, nil)
	task.Start()

	var percents []float64
	task.Observe(func(p Progress) {
		percents = append(percents, p.Percent)
	})

	chunks, err := Plan(30, 10, "o/k")
	assert.NoError(t, err)

	for _, c := range chunks {
		task.markChunkDone(c)
	}

	want := []float64{
		float64(1) / 3 * 100,
		float64(2) / 3 * 100,
		100,
	}
	assert.Equal(t, want, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}

	p := task.Snapshot()
	assert.Equal(t, 3, p.CompletedChunks)
	assert.Equal(t, int64(30), p.BytesSent)
	assert.Equal(t, float64(100), p.Percent)
}
