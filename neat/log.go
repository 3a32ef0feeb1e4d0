package neat

import (
	"log"
	"os"

	"github.com/pkg/errors"
)

// LoggerLevel identifies one of the package's log verbosity levels.
type LoggerLevel string

const (
	LogLevelDebug   LoggerLevel = "debug"
	LogLevelInfo    LoggerLevel = "info"
	LogLevelWarning LoggerLevel = "warn"
	LogLevelError   LoggerLevel = "error"
)

var (
	// LogLevel is the current log level for the package. Messages below
	// this level are discarded. Defaults to info.
	LogLevel = LogLevelInfo

	loggerDebug = log.New(os.Stdout, "DEBUG: ", log.Ltime)
	loggerInfo  = log.New(os.Stdout, "INFO: ", log.Ltime)
	loggerWarn  = log.New(os.Stdout, "WARN: ", log.Ltime)
	loggerError = log.New(os.Stderr, "ERROR: ", log.Ltime)

	// DebugLog emits a message at debug level and above.
	DebugLog = func(message string) {
		if acceptLogLevel(LogLevel, LogLevelDebug) {
			_ = loggerDebug.Output(2, message)
		}
	}
	// InfoLog emits a message at info level and above.
	InfoLog = func(message string) {
		if acceptLogLevel(LogLevel, LogLevelInfo) {
			_ = loggerInfo.Output(2, message)
		}
	}
	// WarnLog emits a message at warn level and above.
	WarnLog = func(message string) {
		if acceptLogLevel(LogLevel, LogLevelWarning) {
			_ = loggerWarn.Output(2, message)
		}
	}
	// ErrorLog emits a message at error level.
	ErrorLog = func(message string) {
		if acceptLogLevel(LogLevel, LogLevelError) {
			_ = loggerError.Output(2, message)
		}
	}
)

// SetLogLevel parses a level name and installs it as the package's current
// log level.
func SetLogLevel(level string) error {
	switch level {
	case "debug":
		LogLevel = LogLevelDebug
	case "info":
		LogLevel = LogLevelInfo
	case "warn":
		LogLevel = LogLevelWarning
	case "error":
		LogLevel = LogLevelError
	default:
		return errors.Errorf("unsupported log level: %q", level)
	}
	return nil
}

func acceptLogLevel(current, target LoggerLevel) bool {
	rank := map[LoggerLevel]int{
		LogLevelDebug:   0,
		LogLevelInfo:    1,
		LogLevelWarning: 2,
		LogLevelError:   3,
	}
	cr, ok := rank[current]
	if !ok {
		return true
	}
	tr, ok := rank[target]
	if !ok {
		return true
	}
	return tr >= cr
}
