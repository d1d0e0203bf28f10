// Command latravels runs the LA Travels booking assistant.
//
//	latravels chat                   interactive terminal session
//	latravels serve [-addr :8080]    HTTP API
//	latravels worker                 Temporal worker for ConversationWorkflow
//	latravels history <conversation> print a conversation's transcript
//
// Every command accepts -config <file.yaml>; environment variables (and a .env file) override it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/latravels/pkg/slogx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("latravels failed", slogx.Error(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: latravels <chat|serve|worker|history> [-config file] [args]")
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return flag.ErrHelp
	}

	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("LATRAVELS_CONFIG"), "path to a YAML config file")
	addr := fs.String("addr", "", "listen address for serve, overrides LATRAVELS_HTTP_ADDR")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "chat":
		return a.chat(ctx)
	case "serve":
		if *addr != "" {
			a.cfg.HTTP.Address = *addr
		}
		return a.serve(ctx)
	case "worker":
		return a.worker(ctx)
	case "history":
		if fs.NArg() != 1 {
			return fmt.Errorf("history needs a conversation id")
		}
		return a.history(ctx, fs.Arg(0))
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
