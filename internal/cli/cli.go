package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/loopctl/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("loopctl", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
loopctl - Rebuilds a live-coded loop every time you save.

Usage:
  loopctl [options] [PROJECT_DIR]

Arguments:
  PROJECT_DIR
    Directory holding loopctl.hcl (or .json, .yaml) and the project and
    live files. Defaults to the current directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	dirFlag := flagSet.String("dir", "", "Project directory.")
	listenFlag := flagSet.String("listen", "127.0.0.1:7410", "Address of the socket.io hub. Empty disables it.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	pollFlag := flagSet.Duration("poll-interval", app.DefaultPollInterval, "How often the project directory is rescanned when file notifications are unavailable.")
	mcpFlag := flagSet.Bool("mcp", false, "Serve MCP tools on stdin/stdout. Logs go to stderr.")
	journalFlag := flagSet.String("journal", "", "Path of a SQLite file recording every build attempt.")
	autoplayFlag := flagSet.Bool("autoplay", false, "Start the loop after the first successful live build.")
	colorFlag := flagSet.Bool("color", true, "Colorize console output.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	dir := "."
	if *dirFlag != "" {
		dir = *dirFlag
	} else if flagSet.NArg() > 0 {
		dir = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "only one project directory may be given"}
	}
	slog.Debug("Project directory determined.", "dir", dir)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	config, err := app.NewConfig(app.Config{
		Dir:             dir,
		Listen:          *listenFlag,
		HealthcheckPort: *healthPortFlag,
		PollInterval:    *pollFlag,
		MCP:             *mcpFlag,
		JournalPath:     *journalFlag,
		AutoPlay:        *autoplayFlag,
		Colors:          *colorFlag,
		LogFormat:       logFormat,
		LogLevel:        strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
