package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingLogger struct {
	counts map[string]int
}

func newCountingLogger() *countingLogger {
	return &countingLogger{counts: make(map[string]int)}
}

func (c *countingLogger) record(module, message string) {
	c.counts[module+"|"+message]++
}

func (c *countingLogger) Debug(module, message string, _ map[string]interface{}) {
	c.record(module, message)
}
func (c *countingLogger) Info(module, message string, _ map[string]interface{}) {
	c.record(module, message)
}
func (c *countingLogger) Warn(module, message string, _ map[string]interface{}) {
	c.record(module, message)
}
func (c *countingLogger) Error(module, message string, _ map[string]interface{}) {
	c.record(module, message)
}
func (c *countingLogger) Sync() error { return nil }

func TestThrottledSuppressesRepeats(t *testing.T) {
	inner := newCountingLogger()
	throttled := NewThrottled(inner, time.Hour)

	for i := 0; i < 10; i++ {
		throttled.Warn("Queue", "backend unreachable", nil)
	}

	assert.Equal(t, 1, inner.counts["Queue|backend unreachable"])
}

func TestThrottledDistinguishesMessages(t *testing.T) {
	inner := newCountingLogger()
	throttled := NewThrottled(inner, time.Hour)

	throttled.Warn("Queue", "backend unreachable", nil)
	throttled.Warn("Queue", "promotion failed", nil)
	throttled.Warn("Nats", "backend unreachable", nil)

	assert.Len(t, inner.counts, 3)
}

func TestThrottledAllowsAfterInterval(t *testing.T) {
	inner := newCountingLogger()
	throttled := NewThrottled(inner, 10*time.Millisecond)

	throttled.Warn("Queue", "backend unreachable", nil)
	time.Sleep(20 * time.Millisecond)
	throttled.Warn("Queue", "backend unreachable", nil)

	assert.Equal(t, 2, inner.counts["Queue|backend unreachable"])
}
