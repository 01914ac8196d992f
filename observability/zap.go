package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapObserver emits events through a zap logger. The event type is the
// message and Data keys become fields in sorted order.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver creates a ZapObserver for logger.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	return &ZapObserver{logger: logger}
}

// ZapLevel maps l to the corresponding zap level. zap has no trace level,
// so trace severities log at debug.
func (l Level) ZapLevel() zapcore.Level {
	switch {
	case l <= 8:
		return zapcore.DebugLevel
	case l <= 12:
		return zapcore.InfoLevel
	case l <= 16:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func (o *ZapObserver) OnEvent(_ context.Context, event Event) {
	ce := o.logger.Check(event.Level.ZapLevel(), string(event.Type))
	if ce == nil {
		return
	}
	if !event.Timestamp.IsZero() {
		ce.Time = event.Timestamp
	}

	keys := event.Keys()
	fields := make([]zap.Field, 0, len(keys)+1)
	fields = append(fields, zap.String("source", event.Source))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, event.Data[k]))
	}
	ce.Write(fields...)
}
