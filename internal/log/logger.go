package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-kit/log/term"
	"github.com/mattn/go-isatty"
)

// Log levels accepted by SetupLogging
const (
	LogLevelNone = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// LogKeyInstance is the key carrying the instance name on every line
const LogKeyInstance = "instance"

// ParseLevel maps a level name from the configuration to a log level
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off":
		return LogLevelNone, nil
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "", "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// UseColor reports whether colored output makes sense for the given mode
// ("auto", "always" or "never").
func UseColor(mode string) bool {
	switch strings.ToLower(mode) {
	case "always", "true", "yes":
		return true
	case "never", "false", "no":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}

// SetupLogging returns the process logger writing to stdout.
func SetupLogging(configLogLevel int, formatJSON bool, useColor bool, instance string) log.Logger {
	return NewLogger(os.Stdout, configLogLevel, formatJSON, useColor, instance)
}

// NewLogger builds a leveled logfmt or JSON logger writing to w.
func NewLogger(w io.Writer, configLogLevel int, formatJSON bool, useColor bool, instance string) log.Logger {
	var (
		logger   log.Logger
		logLevel level.Option
	)

	if useColor {
		colorFn := func(keyvals ...any) term.FgBgColor {
			for i := 0; i < len(keyvals)-1; i += 2 {
				if keyvals[i] != level.Key() {
					continue
				}

				switch keyvals[i+1] {
				case level.DebugValue():
					return term.FgBgColor{Fg: term.DarkBlue}
				case level.InfoValue():
					return term.FgBgColor{Fg: term.Default}
				case level.WarnValue():
					return term.FgBgColor{Fg: term.Yellow}
				case level.ErrorValue():
					return term.FgBgColor{Fg: term.Red}
				default:
					return term.FgBgColor{}
				}
			}

			return term.FgBgColor{}
		}

		if formatJSON {
			logger = term.NewLogger(w, log.NewJSONLogger, colorFn)
		} else {
			logger = term.NewLogger(w, log.NewLogfmtLogger, colorFn)
		}
	} else {
		if formatJSON {
			logger = log.NewJSONLogger(log.NewSyncWriter(w))
		} else {
			logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
		}
	}

	switch configLogLevel {
	case LogLevelNone:
		logLevel = level.AllowNone()
	case LogLevelError:
		logLevel = level.AllowError()
	case LogLevelWarn:
		logLevel = level.AllowWarn()
	case LogLevelDebug:
		logLevel = level.AllowDebug()
	default:
		logLevel = level.AllowInfo()
	}

	logger = level.NewFilter(logger, logLevel)

	return log.With(
		logger,
		"ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller, LogKeyInstance, instance,
	)
}
