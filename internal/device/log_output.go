package device

import "log/slog"

// LogOutput writes every note event to a logger. It is always available and
// serves as the fallback output when no real sink is connected.
type LogOutput struct {
	logger *slog.Logger
}

// NewLogOutput creates a LogOutput writing to logger.
func NewLogOutput(logger *slog.Logger) *LogOutput {
	return &LogOutput{logger: logger}
}

func (o *LogOutput) ID() string   { return "log" }
func (o *LogOutput) Name() string { return "Log" }

// Send logs the message at debug level.
func (o *LogOutput) Send(msg Message) error {
	o.logger.Debug("note",
		"channel", msg.Channel,
		"note", msg.Note,
		"velocity", msg.Velocity,
		"duration", msg.Duration,
	)
	return nil
}
