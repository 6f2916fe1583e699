package logging

import (
	"fmt"
	"strings"
)

// CronLogger routes robfig/cron diagnostics into the leveled logger.
// It satisfies cron.Logger.
type CronLogger struct{}

// Info logs scheduler chatter at trace level; cron is noisy at info.
func (CronLogger) Info(msg string, keysAndValues ...interface{}) {
	Tracef("cron: %s%s", msg, formatPairs(keysAndValues))
}

func (CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	Errorf("cron: %s: %v%s", msg, err, formatPairs(keysAndValues))
}

func formatPairs(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, "%v", kv[i])
		}
	}
	return b.String()
}
