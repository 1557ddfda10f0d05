package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/comfygridgo/internal/app"
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

// stringList collects repeated occurrences of a flag into a slice.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Parse processes command-line arguments. It returns a populated AppConfig,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("comfygridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
ComfyGridGo - Queue ComfyUI workflows and wait for their results.

Usage:
  comfygridgo [options] WORKFLOW_PATH

Arguments:
  WORKFLOW_PATH
    Path to a workflow JSON file (API format), or an inline JSON document.

Options:
`)
		flagSet.PrintDefaults()
	}

	serverFlag := flagSet.String("server", "", "Base URL of the engine, e.g. http://127.0.0.1:8188.")
	configFlag := flagSet.String("config", "", "Path to an .hcl profile with server and retry settings.")
	clientIDFlag := flagSet.String("client-id", "", "Session identifier; generated when empty.")
	outDirFlag := flagSet.String("out-dir", "", "Directory to write fetched images into. Empty skips fetching.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Overall bound on the wait, e.g. 5m. 0 disables it.")
	listNodesFlag := flagSet.Bool("list-nodes", false, "Print the workflow's node ids and titles, then exit.")
	validateFlag := flagSet.Bool("validate", false, "Ask the engine to validate the workflow before queueing.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	var setFlags stringList
	flagSet.Var(&setFlags, "set", "Override a parameter as node.param=value. Repeatable.")
	var outputFlags stringList
	flagSet.Var(&outputFlags, "output", "Keep only this output node id in the result. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
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

	for _, s := range setFlags {
		if _, _, ok := strings.Cut(s, "="); !ok {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid --set %q: expected node.param=value", s)}
		}
	}

	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid timeout: must not be negative"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkflowPath: path,
		ProfilePath:  *configFlag,
		ServerURL:    *serverFlag,
		ClientID:     *clientIDFlag,
		Sets:         setFlags,
		OutputNodes:  outputFlags,
		OutDir:       *outDirFlag,
		Timeout:      *timeoutFlag,
		ListNodes:    *listNodesFlag,
		Validate:     *validateFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
