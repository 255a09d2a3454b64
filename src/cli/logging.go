// Contains various utility functions related to logging.

package cli

import (
	"os"
	"path"

	cli "github.com/peterebden/go-cli-init/v5/logging"
	"golang.org/x/term"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("cli")

// StdErrIsATerminal is true if the process' stderr is an interactive TTY.
var StdErrIsATerminal = IsATerminal(os.Stderr)

// ShowColouredOutput tracks whether we are displaying coloured output or not.
var ShowColouredOutput = StdErrIsATerminal

// logLevel is the current verbosity level that is set.
var logLevel = logging.WARNING

// A Verbosity is used as a flag to define logging verbosity.
type Verbosity = cli.Verbosity

// MinVerbosity is the minimum verbosity we support.
const MinVerbosity = cli.MinVerbosity

// MaxVerbosity is the maximum verbosity we support.
const MaxVerbosity = cli.MaxVerbosity

// InitLogging initialises logging backends.
func InitLogging(verbosity Verbosity) {
	logLevel = logging.Level(verbosity)
	logging.SetBackend(stderrBackend())
}

// InitFileLogging initialises an optional logging backend to a file, in addition to stderr.
func InitFileLogging(logFile string, logFileLevel Verbosity) {
	if err := os.MkdirAll(path.Dir(logFile), os.ModeDir|0775); err != nil {
		log.Fatalf("Error creating log file directory: %s", err)
	}
	file, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Error opening log file: %s", err)
	}
	fileBackend := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(file, "", 0), logFormatter(false)))
	fileBackend.SetLevel(logging.Level(logFileLevel), "")
	logging.SetBackend(logging.MultiLogger(stderrBackend(), fileBackend))
}

func stderrBackend() logging.LeveledBackend {
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), logFormatter(ShowColouredOutput)))
	backend.SetLevel(logLevel, "")
	return backend
}

func logFormatter(coloured bool) logging.Formatter {
	formatStr := "%{time:15:04:05.000} %{level:7s}: %{message}"
	if coloured {
		formatStr = "%{color}" + formatStr + "%{color:reset}"
	}
	return logging.MustStringFormatter(formatStr)
}

// IsATerminal returns true if the given file is an interactive TTY.
func IsATerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

// HTTPLogWrapper wraps the standard logger to implement the LeveledLogger interface from retryablehttp.
type HTTPLogWrapper struct {
	Log *logging.Logger
}

// Error logs at error level
func (w *HTTPLogWrapper) Error(msg string, keysAndValues ...interface{}) {
	w.Log.Errorf("%v: %v", msg, keysAndValues)
}

// Info logs at info level
func (w *HTTPLogWrapper) Info(msg string, keysAndValues ...interface{}) {
	w.Log.Infof("%v: %v", msg, keysAndValues)
}

// Debug logs at debug level
func (w *HTTPLogWrapper) Debug(msg string, keysAndValues ...interface{}) {
	w.Log.Debugf("%v: %v", msg, keysAndValues)
}

// Warn logs at warning level
func (w *HTTPLogWrapper) Warn(msg string, keysAndValues ...interface{}) {
	w.Log.Warningf("%v: %v", msg, keysAndValues)
}
