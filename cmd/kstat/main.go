// Command kstat lists, reads and serves Solaris and illumos kernel
// statistics.
//
//	kstat list --module sd
//	kstat --format table read --module cpu_stat
//	kstat get --stat syscall cpu:0:sys
//	kstat serve --listen :3000
//
// With --fixture FILE it works from a YAML kstat chain instead of the
// running kernel, on any platform.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(exitCode(context.Background(), newApp(), os.Args, os.Stderr))
}

// exitCode runs app and reports a failure once, on stderr.
func exitCode(ctx context.Context, app *cli.Command, args []string, stderr io.Writer) int {
	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "kstat: %v\n", err)
		return 1
	}
	return 0
}
