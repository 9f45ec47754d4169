package runner

import (
	"strings"
	"sync"
)

// tailBuffer is an io.Writer that keeps only the last limit bytes written.
// Writes always succeed so the child process never blocks on output capture.
type tailBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(p) >= t.limit {
		if len(p) > t.limit || len(t.buf) > 0 {
			t.truncated = true
		}
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return len(p), nil
	}
	if overflow := len(t.buf) + len(p) - t.limit; overflow > 0 {
		t.buf = t.buf[overflow:]
		t.truncated = true
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.truncated {
		return "[output truncated]\n" + string(t.buf)
	}
	return string(t.buf)
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
