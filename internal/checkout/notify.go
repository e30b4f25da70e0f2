package checkout

import (
	"context"

	"go.uber.org/zap"
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a short message for the customer.
type Notice struct {
	Level   Level
	Title   string
	Message string
	// Retry is set when repeating the action may succeed.
	Retry bool
}

// Notifier shows notices to the customer.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes notices to a logger. Used by the command line client
// and in tests.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, notice Notice) {
	lg := n.lg
	fields := []zap.Field{
		zap.String("title", notice.Title),
		zap.String("message", notice.Message),
	}
	if notice.Level == LevelError {
		lg.Warn("Checkout notice", append(fields, zap.Bool("retry", notice.Retry))...)
		return
	}
	lg.Info("Checkout notice", fields...)
}
