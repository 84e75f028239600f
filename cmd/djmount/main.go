// djmount mounts one or more UPnP AV MediaServers discovered over SSDP as
// a read-only local filesystem: the Go-native rewrite of djmount's
// top-level djmount.c (parse options, start discovery, mount, then either
// daemonize or run the interactive test_upnp.c REPL).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
