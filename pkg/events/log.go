package events

import (
	"context"

	"go.od2.network/tubeq/pkg/queue"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes events to a zap logger.
type Logger struct {
	Log *zap.Logger
	// Queue lengths from which QueueLength events log at a higher level.
	InfoLength int64
	WarnLength int64
}

// NewLogger creates a logging sink with default length thresholds.
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{
		Log:        log,
		InfoLength: 50,
		WarnLength: 500,
	}
}

// Dispatch logs the event.
func (l *Logger) Dispatch(_ context.Context, event queue.Event) error {
	switch e := event.(type) {
	case queue.BeforeHandle:
		l.Log.Debug("Processing job", messageFields(e.Message)...)
	case queue.AfterHandle:
		l.Log.Debug("Processed job", messageFields(e.Message)...)
	case queue.RetryHandle:
		l.Log.Warn("Retrying job", append(messageFields(e.Message), zap.Error(e.Err))...)
	case queue.FailedHandle:
		l.Log.Error("Job failed permanently", append(messageFields(e.Message), zap.Error(e.Err))...)
	case queue.QueueLength:
		level := zapcore.DebugLevel
		if l.WarnLength > 0 && e.Length >= l.WarnLength {
			level = zapcore.WarnLevel
		} else if l.InfoLength > 0 && e.Length >= l.InfoLength {
			level = zapcore.InfoLevel
		}
		if ce := l.Log.Check(level, "Queue length"); ce != nil {
			ce.Write(
				zap.String("channel", e.Channel),
				zap.String("queue", e.Queue),
				zap.Int64("length", e.Length))
		}
	}
	return nil
}

func messageFields(msg *queue.Message) []zap.Field {
	return []zap.Field{
		zap.String("job_type", jobType(msg)),
		zap.Int("attempts", msg.Attempts()),
	}
}
