// Command matchsim runs football matches headless and records them through
// the configured storage backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// ProgramName prefixes log files and status output.
const ProgramName = "matchsim"

// set by the linker
var (
	BuildVersion = "dev"
	BuildDate    = "unknown"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ProgramName, err)
		}
		os.Exit(1)
	}
}

func usage(out io.Writer) {
	fmt.Fprintf(out, `Usage: %s <command> [flags]

Commands:
  run                 simulate a match and record it
  snapshot <file>     run, then save a state file with a check point
  validate <file>     re-run a state file and compare with its check point
  replay <file>       load a state file and record the rest of the match
  export <match-id>   write a stored match as a replay file
  version             print the build version

Run '%s <command> -h' for the flags of a command.
`, ProgramName, ProgramName)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return runCommand(ctx, rest, out)
	case "snapshot":
		return snapshotCommand(ctx, rest, out)
	case "validate":
		return validateCommand(ctx, rest, out)
	case "replay":
		return replayCommand(ctx, rest, out)
	case "export":
		return exportCommand(ctx, rest, out)
	case "version":
		fmt.Fprintf(out, "%s %s (%s)\n", ProgramName, BuildVersion, BuildDate)
		return nil
	case "help", "-h", "--help":
		usage(out)
		return nil
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
