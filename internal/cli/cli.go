package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/calcgrid/internal/app"
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

// repeated collects every occurrence of a flag.
type repeated []string

func (r *repeated) String() string { return strings.Join(*r, ",") }

func (r *repeated) Set(s string) error {
	*r = append(*r, s)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("calcgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
calcgrid - Engineering calculators that recalculate as you type.

Usage:
  calcgrid [options] [CALCULATOR]
  calcgrid --list [--search TEXT]
  calcgrid --serve :8080 [--snapshot FILE] [--save FILE]
  calcgrid --watch http://localhost:8080 --session ID

Examples:
  calcgrid --set voltage=5 --set current=20 ohms_law
  calcgrid --output rcf=c --set fc=1000 --save rc.toml low_pass_rc
  calcgrid --sweep r=100:1e6:40:log --sample fc --plot fc.png low_pass_rc

Options:
`)
		flagSet.PrintDefaults()
	}

	var sets, outputs repeated
	calcFlag := flagSet.String("calc", "", "Name of the calculator to open.")
	flagSet.Var(&sets, "set", "Set an input, name=value in its display unit. Repeatable.")
	flagSet.Var(&outputs, "output", "Select a group output, group=variable. Repeatable.")
	snapshotFlag := flagSet.String("snapshot", "", "Restore the calculator, or every session when serving, from a TOML snapshot file.")
	saveFlag := flagSet.String("save", "", "Save the resulting state, or every open session on shutdown when serving, to a TOML snapshot file.")
	exportFlag := flagSet.String("export", "", "Export the resulting state to an xlsx file.")
	sweepFlag := flagSet.String("sweep", "", "Sweep an input, name=from:to[:steps][:log] in its display unit.")
	sampleFlag := flagSet.String("sample", "", "Output sampled at each step of the sweep.")
	plotFlag := flagSet.String("plot", "", "Save the sweep as a chart (png, svg or pdf).")
	listFlag := flagSet.Bool("list", false, "List the available calculators.")
	searchFlag := flagSet.String("search", "", "Only list calculators whose title or a tag contains this text.")
	serveFlag := flagSet.String("serve", "", "Serve the HTTP and socket.io API on this address.")
	editRateFlag := flagSet.Float64("edit-rate", 0, "Edits per second allowed per session when serving. 0 is unlimited.")
	watchFlag := flagSet.String("watch", "", "Print the live events of a session on this server URL.")
	sessionFlag := flagSet.String("session", "", "Session ID to watch.")
	calculatorsPathFlag := flagSet.String("calculators-path", "calculators", "Path to the directory containing calculator templates.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	calcName := *calcFlag
	if calcName == "" && flagSet.NArg() > 0 {
		calcName = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %v", flagSet.Args()[1:])}
	}

	if calcName == "" && !*listFlag && *serveFlag == "" && *watchFlag == "" {
		slog.Debug("No mode selected, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		CalculatorsPath: *calculatorsPathFlag,
		Calc:            calcName,
		Sets:            sets,
		Outputs:         outputs,
		SnapshotPath:    *snapshotFlag,
		SavePath:        *saveFlag,
		ExportPath:      *exportFlag,
		Sweep:           *sweepFlag,
		Sample:          *sampleFlag,
		PlotPath:        *plotFlag,
		List:            *listFlag,
		Search:          *searchFlag,
		ServeAddr:       *serveFlag,
		EditRate:        *editRateFlag,
		WatchURL:        *watchFlag,
		WatchSession:    *sessionFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
