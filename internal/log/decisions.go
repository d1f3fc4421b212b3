package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DecisionLogger records every ambiguity decision taken during lowering so a
// run can be replayed non-interactively.
type DecisionLogger interface {
	Log(kind, subject string, options []string, choice int)
}

type decisionLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewDecisions creates a DecisionLogger. If w is nil, returns a no-op logger.
func NewDecisions(w io.Writer) DecisionLogger {
	return &decisionLogger{w: w}
}

// Log emits one line per decision; choice -1 means skipped.
func (d *decisionLogger) Log(kind, subject string, options []string, choice int) {
	if d.w == nil {
		return
	}
	chosen := "skip"
	if choice >= 0 && choice < len(options) {
		chosen = options[choice]
	}
	line := fmt.Sprintf("%s %s %s: chose %q of [%s]\n",
		time.Now().Format("2006/01/02 15:04:05"),
		kind,
		subject,
		chosen,
		strings.Join(options, ", "))

	d.mu.Lock()
	_, _ = d.w.Write([]byte(line))
	d.mu.Unlock()
}
