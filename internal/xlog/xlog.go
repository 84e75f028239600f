// Package xlog is djmount-go's logging facility: a thin wrapper over
// logrus (the teacher's logging dependency) that keeps the call shape of
// djmount's own Log_Printf (a numeric level plus a subject), so call sites
// elsewhere in the tree read the way rclone's fs.Errorf(subject, fmt, ...)
// calls do.
package xlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level mirrors djmount's Log_Level enum (spec §6 REPL: "loglevel <0..3>").
type Level int

// Levels, most to least severe, matching djmount's numbering.
const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	mu     sync.Mutex
	logger = logrus.New()
	max    = LevelInfo
)

func init() {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableLevelTruncation: true,
	})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(toLogrusLevel(max))
}

// toLogrusLevel maps xlog's own Level onto logrus's, so logrus's internal
// floor never silently drops a message xlog already decided to allow
// through (logrus.New() defaults to InfoLevel, which would otherwise
// swallow every Debug call regardless of xlog's own max).
func toLogrusLevel(l Level) logrus.Level {
	switch l {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarning:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// SetOutput redirects log output; used by tests to capture log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetMaxLevel sets the maximum level that will be emitted, the Go-native
// counterpart of djmount's Log_SetMaxLevel and the REPL's "loglevel" command.
func SetMaxLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	max = l
	logger.SetLevel(toLogrusLevel(l))
}

// MaxLevel returns the currently configured maximum level.
func MaxLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return max
}

// Colorize toggles ANSI coloring of level tags, the counterpart of
// djmount's Log_Colorize.
func Colorize(on bool) {
	mu.Lock()
	defer mu.Unlock()
	if tf, ok := logger.Formatter.(*logrus.TextFormatter); ok {
		tf.DisableColors = !on
		tf.ForceColors = on
	}
}

func subjectString(subject interface{}) string {
	if subject == nil {
		return ""
	}
	if s, ok := subject.(string); ok {
		return s
	}
	if s, ok := subject.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", subject)
}

func logf(level Level, subject interface{}, format string, args ...interface{}) {
	mu.Lock()
	allowed := level <= max
	mu.Unlock()
	if !allowed {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if s := subjectString(subject); s != "" {
		msg = s + ": " + msg
	}
	switch level {
	case LevelError:
		logger.Error(msg)
	case LevelWarning:
		logger.Warn(msg)
	case LevelInfo:
		logger.Info(msg)
	default:
		logger.Debug(msg)
	}
}

// Errorf logs at LevelError. subject is the originating object (a device, a
// path, a cache entry...) or nil.
func Errorf(subject interface{}, format string, args ...interface{}) {
	logf(LevelError, subject, format, args...)
}

// Warnf logs at LevelWarning.
func Warnf(subject interface{}, format string, args ...interface{}) {
	logf(LevelWarning, subject, format, args...)
}

// Infof logs at LevelInfo.
func Infof(subject interface{}, format string, args ...interface{}) {
	logf(LevelInfo, subject, format, args...)
}

// Debugf logs at LevelDebug.
func Debugf(subject interface{}, format string, args ...interface{}) {
	logf(LevelDebug, subject, format, args...)
}
