// Command wrestlerank builds relationship graphs from wrestling results,
// publishes optimized rankings and computes power scores.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
)

// errUsage marks bad invocations; main exits 2 for them.
var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = map[string]command{
	"import":       {"load season files into the store", cmdImport},
	"build":        {"build relationship graphs", cmdBuild},
	"scores":       {"compute power scores for a class", cmdScores},
	"optimize":     {"optimize and publish a class ranking", cmdOptimize},
	"ranking":      {"show the latest ranking of a class", cmdRanking},
	"run":          {"build, optimize and score classes on the worker pool", cmdRun},
	"matrix":       {"print the head-to-head matrix of a class", cmdMatrix},
	"export-graph": {"write a class graph to Neo4j", cmdExportGraph},
	"simulate":     {"rank a synthetic season and compare with its hidden order", cmdSimulate},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	default:
		os.Stderr.WriteString("wrestlerank: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run dispatches one subcommand. Global flags come before its name.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("wrestlerank", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "YAML config file (overrides WRESTLERANK_CONFIG)")
	global.Usage = func() { usage(stderr) }
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr)
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		usage(stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}

	e, err := setup(ctx, *configPath, stdout, stderr)
	if err != nil {
		return err
	}
	defer e.close(ctx)
	return cmd.run(ctx, e, rest[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Usage: wrestlerank [-config file] <command> [flags]\n\nCommands:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %-13s %s\n", n, commands[n].summary)
	}
	b.WriteString("\nRun 'wrestlerank <command> -h' for command flags.\n")
	_, _ = io.WriteString(w, b.String())
}
