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

	"github.com/polterguy/magic.endpoint-sub000/server"
	"github.com/polterguy/magic.endpoint-sub000/server/config"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the entry point, separated from main for testability.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("magic", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		devMode     = flags.Bool("dev", false, "Development mode (file watcher, dev endpoints)")
		port        = flags.Int("port", 0, "Override listen port")
		filesRoot   = flags.String("files", "", "Override endpoint files root")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}
	if *showHelp {
		printUsage(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "magic %s (%s)\n", Version, Commit)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.Server.Dev = *devMode
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *filesRoot != "" {
		cfg.Files.Root = *filesRoot
	}

	srv, err := server.New(cfg, stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `magic - script-per-endpoint API server

Usage:
  magic [flags]

Flags:
  -config path   Path to YAML config file
  -dev           Development mode (file watcher, dev endpoints)
  -port n        Override listen port
  -files path    Override endpoint files root
  -version       Show version
  -help          Show help
`)
}
