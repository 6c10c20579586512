package reembed

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	t.Run("reports counts", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 100, 10)

		tracker.Start()
		tracker.Record(BatchResult{Embedded: 25})
		tracker.Record(BatchResult{Embedded: 25, Drifted: 3})
		tracker.Record(BatchResult{Embedded: 40, Queued: 10})

		assert.Equal(t, 100, tracker.Done())
		assert.GreaterOrEqual(t, tracker.Elapsed(), time.Duration(0))

		output := buf.String()
		assert.Contains(t, output, "100/100")
		assert.Contains(t, output, "100.0%")
		assert.Contains(t, output, "queued 10")
		assert.Contains(t, output, "drifted 3")
	})

	t.Run("reports only at interval", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 100, 50)

		tracker.Start()
		tracker.Record(BatchResult{Embedded: 10})
		assert.Empty(t, buf.String())

		tracker.Record(BatchResult{Embedded: 40})
		assert.Contains(t, buf.String(), "50/100")
	})

	t.Run("caps at total", func(t *testing.T) {
		tracker := NewProgressTracker(&bytes.Buffer{}, 10, 1)
		tracker.Start()
		tracker.Record(BatchResult{Embedded: 15})
		assert.Equal(t, 10, tracker.Done())
	})

	t.Run("ignored before start", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 10, 1)
		tracker.Record(BatchResult{Embedded: 5})
		tracker.Finish()

		assert.Zero(t, tracker.Done())
		assert.Zero(t, tracker.Elapsed())
		assert.Empty(t, buf.String())
	})

	t.Run("finish ends the line", func(t *testing.T) {
		var buf bytes.Buffer
		tracker := NewProgressTracker(&buf, 4, 100)
		tracker.Start()
		tracker.Record(BatchResult{Embedded: 4})
		tracker.Finish()
		assert.Contains(t, buf.String(), "4/4")
		assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
	})
}
