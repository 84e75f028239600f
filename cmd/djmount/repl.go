package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/r3mi/djmount-go/internal/contentdirectory"
	"github.com/r3mi/djmount-go/internal/device"
	"github.com/r3mi/djmount-go/internal/discovery"
	"github.com/r3mi/djmount-go/internal/registry"
	"github.com/r3mi/djmount-go/internal/vfs"
	"github.com/r3mi/djmount-go/internal/xlog"
)

// replCmd is the Go counterpart of djmount's test_upnp.c: an interactive
// command loop over the same registry a real mount would use, kept intact
// as the acceptance harness spec.md §6 describes (not part of the product
// surface itself).
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive test console driving the device registry (test_upnp.c equivalent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		disc := discovery.New(reg)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := disc.Start(ctx, searchInterval); err != nil {
			return err
		}
		reg.StartExpirySweep(ctx, searchInterval)

		return runREPL(os.Stdin, os.Stdout, reg)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// runREPL drives commands read from r, writing output to w, until "exit",
// EOF, or an unrecoverable read error. It is a plain function (not tied to
// cobra) so it can be exercised with an in-memory reader/writer in tests.
func runREPL(r io.Reader, w io.Writer, reg *registry.Registry) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, "djmount> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmdName, cmdArgs := fields[0], fields[1:]

		if cmdName == "exit" {
			return nil
		}
		if err := dispatchCommand(w, reg, cmdName, cmdArgs); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
}

func dispatchCommand(w io.Writer, reg *registry.Registry, name string, args []string) error {
	switch name {
	case "help":
		printHelp(w)
		return nil
	case "loglevel":
		return cmdLogLevel(w, args)
	case "leak":
		printMemStats(w, reg, false)
		return nil
	case "leakfull":
		printMemStats(w, reg, true)
		return nil
	case "listdev":
		return cmdListDev(w, reg)
	case "refresh":
		fmt.Fprintln(w, "refresh: discovery runs continuously; nothing to trigger manually")
		return nil
	case "printdev":
		return cmdPrintDev(w, reg, args)
	case "browse":
		return cmdBrowse(w, reg, args)
	case "metadata":
		return cmdMetadata(w, reg, args)
	case "ls":
		return cmdLs(w, reg, args)
	case "action":
		return cmdAction(w, reg, args)
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", name)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  help                                   show this message
  loglevel <0..3>                        set logging verbosity
  leak                                   dump Go runtime memory stats
  leakfull                               dump memory stats plus registry/cache counts
  listdev                                list known devices
  refresh                                (no-op; discovery is continuous)
  printdev <name>                        print a device's full status string
  browse <name> <id>                     Browse a container's direct children
  metadata <name> <id>                   Browse a single object's own metadata
  ls <name> <path>                       list a VFS path's entries
  action <name> <serviceType> <action>   invoke an arbitrary no-argument action
  exit                                   quit`)
}

func cmdLogLevel(w io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: loglevel <0..3>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > 3 {
		return fmt.Errorf("invalid level %q, want 0-3", args[0])
	}
	xlog.SetMaxLevel(xlog.Level(n))
	fmt.Fprintf(w, "log level set to %d\n", n)
	return nil
}

func printMemStats(w io.Writer, reg *registry.Registry, full bool) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(w, "HeapAlloc=%d HeapObjects=%d TotalAlloc=%d NumGC=%d Goroutines=%d\n",
		m.HeapAlloc, m.HeapObjects, m.TotalAlloc, m.NumGC, runtime.NumGoroutine())
	if full {
		fmt.Fprintf(w, "RegisteredDevices=%d\n", len(reg.Devices()))
		for _, dev := range reg.Devices() {
			fmt.Fprint(w, dev.StatusString(true))
		}
	}
}

func cmdListDev(w io.Writer, reg *registry.Registry) error {
	devices := reg.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(w, "(no devices discovered yet)")
		return nil
	}
	for _, dev := range devices {
		fmt.Fprintf(w, "%s  %s  (discovered %s ago)\n",
			dev.UDN, dev.FriendlyName, time.Since(dev.CreatedAt).Round(time.Second))
	}
	return nil
}

func resolveDevice(reg *registry.Registry, name string) (*device.Device, error) {
	return reg.Resolve(name)
}

func cmdPrintDev(w io.Writer, reg *registry.Registry, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: printdev <name>")
	}
	dev, err := resolveDevice(reg, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(w, dev.StatusString(true))
	return nil
}

func cdsFor(reg *registry.Registry, name string) (*contentdirectory.ContentDirectory, error) {
	dev, err := resolveDevice(reg, name)
	if err != nil {
		return nil, err
	}
	if dev.CDS == nil {
		return nil, fmt.Errorf("device %q has no ContentDirectory service", name)
	}
	return dev.CDS, nil
}

func cmdBrowse(w io.Writer, reg *registry.Registry, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: browse <name> <id>")
	}
	cds, err := cdsFor(reg, args[0])
	if err != nil {
		return err
	}
	children, err := cds.BrowseChildren(context.Background(), args[1])
	if err != nil {
		return err
	}
	result := cds.NewBrowseResult(children)
	defer result.Close()

	for _, o := range children.Objects {
		kind := "item"
		if o.IsContainer {
			kind = "container"
		}
		fmt.Fprintf(w, "%-10s %-8s %s\n", o.ID, kind, o.Basename)
	}
	return nil
}

func cmdMetadata(w io.Writer, reg *registry.Registry, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: metadata <name> <id>")
	}
	cds, err := cdsFor(reg, args[0])
	if err != nil {
		return err
	}
	o, err := cds.BrowseMetadata(context.Background(), args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, o.RawXML())
	return nil
}

func cmdLs(w io.Writer, reg *registry.Registry, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ls <name> <path>")
	}
	resolver := vfs.NewResolver(reg, showDebugDir)
	entries, err := resolver.List(context.Background(), "/"+args[0]+"/"+strings.TrimPrefix(args[1], "/"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintln(w, e.Name)
	}
	return nil
}

func cmdAction(w io.Writer, reg *registry.Registry, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: action <name> <serviceType> <actionName>")
	}
	dev, err := resolveDevice(reg, args[0])
	if err != nil {
		return err
	}
	svc := dev.Lookup(device.FromServiceType, args[1])
	if svc == nil {
		svc = dev.Lookup(device.FromServiceID, args[1])
	}
	if svc == nil {
		return fmt.Errorf("device %q has no service matching %q", args[0], args[1])
	}
	if err := svc.SendAction(context.Background(), args[2], nil, nil); err != nil {
		return err
	}
	fmt.Fprintln(w, "action invoked successfully")
	return nil
}
