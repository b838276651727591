package logger

import (
	"sync"
	"time"
)

// ThrottledLogger suppresses repeats of the same (module, message) pair within
// an interval. Outage paths that would otherwise spam one line per request
// (queue backend down, NATS unreachable) log through this wrapper instead of
// keeping their own "already logged" flags.
type ThrottledLogger struct {
	inner    ILogger
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewThrottled(inner ILogger, interval time.Duration) *ThrottledLogger {
	return &ThrottledLogger{
		inner:    inner,
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

func (t *ThrottledLogger) allow(module, message string) bool {
	key := module + "|" + message
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if at, ok := t.last[key]; ok && now.Sub(at) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}

func (t *ThrottledLogger) Debug(module, message string, details map[string]interface{}) {
	if t.allow(module, message) {
		t.inner.Debug(module, message, details)
	}
}

func (t *ThrottledLogger) Info(module, message string, details map[string]interface{}) {
	if t.allow(module, message) {
		t.inner.Info(module, message, details)
	}
}

func (t *ThrottledLogger) Warn(module, message string, details map[string]interface{}) {
	if t.allow(module, message) {
		t.inner.Warn(module, message, details)
	}
}

func (t *ThrottledLogger) Error(module, message string, details map[string]interface{}) {
	if t.allow(module, message) {
		t.inner.Error(module, message, details)
	}
}

func (t *ThrottledLogger) Sync() error {
	return t.inner.Sync()
}
