package alert

import (
	"context"
	"fmt"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/state"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// Notifier delivers alerts to an output channel.
type Notifier interface {
	Notify(ctx context.Context, a state.Alert) error
}

// LogNotifier writes alerts to the structured log. The default sink;
// chat or mail delivery implements the same interface.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, a state.Alert) error {
	n.logger.WithFields(map[string]interface{}{
		"kind":        a.Kind,
		"symbol":      a.Symbol,
		"signal_type": a.Signal,
		"message":     a.Message,
	}).Info("Alert")
	return nil
}

// FormatSignalMessage renders the one-line alert text for a verdict.
func FormatSignalMessage(symbol string, t contracts.SignalType, close float64) string {
	return fmt.Sprintf("%s %s @ %.2f", t, symbol, close)
}
