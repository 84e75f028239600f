package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/r3mi/djmount-go/internal/xlog"
)

// logLevelValue is a pflag.Value wrapping xlog.Level, so --loglevel accepts
// either a bare number (djmount.c's "-v <level>") or one of the named
// levels test_upnp.c's "loglevel" REPL command prints back.
type logLevelValue struct{ level *xlog.Level }

var _ pflag.Value = (*logLevelValue)(nil)

func (v *logLevelValue) String() string {
	switch *v.level {
	case xlog.LevelError:
		return "error"
	case xlog.LevelWarning:
		return "warning"
	case xlog.LevelInfo:
		return "info"
	case xlog.LevelDebug:
		return "debug"
	default:
		return strconv.Itoa(int(*v.level))
	}
}

func (v *logLevelValue) Set(s string) error {
	switch s {
	case "error", "0":
		*v.level = xlog.LevelError
	case "warning", "warn", "1":
		*v.level = xlog.LevelWarning
	case "info", "2":
		*v.level = xlog.LevelInfo
	case "debug", "3":
		*v.level = xlog.LevelDebug
	default:
		return fmt.Errorf("invalid log level %q (want 0-3 or error/warning/info/debug)", s)
	}
	return nil
}

func (v *logLevelValue) Type() string { return "level" }

var logLevel = xlog.LevelInfo

var rootCmd = &cobra.Command{
	Use:   "djmount",
	Short: "Mount UPnP AV MediaServers as a local read-only filesystem",
	Long: `djmount discovers UPnP AV MediaServer devices over SSDP and exposes
their ContentDirectory trees as a read-only FUSE filesystem: one directory
per device, containers as subdirectories, items as regular files whose
content is fetched lazily from the device's advertised resource URL.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		xlog.SetMaxLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().Var(&logLevelValue{level: &logLevel}, "loglevel",
		"logging verbosity: 0-3 or error/warning/info/debug")
}
