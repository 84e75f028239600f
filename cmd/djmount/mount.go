package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/r3mi/djmount-go/internal/discovery"
	"github.com/r3mi/djmount-go/internal/fuseadapter"
	"github.com/r3mi/djmount-go/internal/metrics"
	"github.com/r3mi/djmount-go/internal/registry"
	"github.com/r3mi/djmount-go/internal/vfs"
	"github.com/r3mi/djmount-go/internal/xlog"
)

var (
	searchInterval time.Duration
	showDebugDir   bool
	allowOther     bool
	fuseDebug      bool
	metricsAddr    string
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Discover UPnP AV MediaServers and mount them at mountpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountpoint := args[0]

		reg := registry.New()
		disc := discovery.New(reg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := disc.Start(ctx, searchInterval); err != nil {
			return err
		}
		reg.StartExpirySweep(ctx, searchInterval)

		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg)}
			go func() {
				xlog.Infof(metricsAddr, "serving metrics")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					xlog.Errorf(metricsAddr, "metrics server: %v", err)
				}
			}()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		resolver := vfs.NewResolver(reg, showDebugDir)
		return fuseadapter.Mount(mountpoint, resolver, allowOther, fuseDebug)
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)

	flags := mountCmd.Flags()
	flags.DurationVar(&searchInterval, "search-interval", 2*time.Minute,
		"interval between active SSDP M-SEARCH probes")
	flags.BoolVar(&showDebugDir, "debug-tree", true,
		`expose a "/.debug" directory with memstats and per-device status files`)
	flags.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	flags.BoolVar(&fuseDebug, "fuse-debug", false, "log every FUSE request/response")
	flags.StringVar(&metricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on (e.g. :9130); empty disables it")
}
