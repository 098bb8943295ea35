package event

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/chatflow-dev/chatflow/utils"
)

// busLogger routes watermill's logging into the process logger. Info is demoted to
// debug since watermill reports every subscription at that level.
type busLogger struct {
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = busLogger{}

func (l busLogger) Error(msg string, err error, fields watermill.LogFields) {
	utils.Error("event: %s: %v%s", msg, err, l.format(fields))
}

func (l busLogger) Info(msg string, fields watermill.LogFields) {
	utils.Debug("event: %s%s", msg, l.format(fields))
}

func (l busLogger) Debug(msg string, fields watermill.LogFields) {
	utils.Debug("event: %s%s", msg, l.format(fields))
}

func (l busLogger) Trace(string, watermill.LogFields) {}

func (l busLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return busLogger{fields: l.fields.Add(fields)}
}

func (l busLogger) format(fields watermill.LogFields) string {
	all := l.fields.Add(fields)
	if len(all) == 0 {
		return ""
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, all[k])
	}
	return b.String()
}
