package observability

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusObserver emits events through a logrus logger. The event type is
// the message and Data becomes fields.
type LogrusObserver struct {
	logger *logrus.Logger
}

// NewLogrusObserver creates a LogrusObserver for logger.
func NewLogrusObserver(logger *logrus.Logger) *LogrusObserver {
	return &LogrusObserver{logger: logger}
}

// LogrusLevel maps l to the corresponding logrus level.
func (l Level) LogrusLevel() logrus.Level {
	switch {
	case l <= 4:
		return logrus.TraceLevel
	case l <= 8:
		return logrus.DebugLevel
	case l <= 12:
		return logrus.InfoLevel
	case l <= 16:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

func (o *LogrusObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.LogrusLevel()
	if !o.logger.IsLevelEnabled(level) {
		return
	}

	fields := make(logrus.Fields, len(event.Data)+1)
	for k, v := range event.Data {
		fields[k] = v
	}
	fields["source"] = event.Source

	entry := o.logger.WithContext(ctx).WithFields(fields)
	if !event.Timestamp.IsZero() {
		entry = entry.WithTime(event.Timestamp)
	}
	entry.Log(level, string(event.Type))
}
