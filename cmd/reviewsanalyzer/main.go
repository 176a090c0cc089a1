package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ReviewsAnalyzer/internal/app"
	"ReviewsAnalyzer/internal/config"
	"ReviewsAnalyzer/internal/logging"
)

func main() {
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	var overrides app.PathOverrides
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	fs.StringVar(&overrides.In, "in", "", "input artifact path")
	fs.StringVar(&overrides.Out, "out", "", "output artifact path")
	fs.StringVar(&overrides.Meta, "meta", "", "side artifact path (app info, analysis summary, sentiment summary)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err == nil {
		cfg.Paths = overrides.Apply(command, cfg.Paths)
		err = cfg.Validate()
	}
	logger := logging.New(cfg.Logging.Level)

	if err != nil {
		logger.Error("configuration rejected", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	if err := application.Execute(ctx, command); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		stop()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: reviewsanalyzer <%s> [-in path] [-out path] [-meta path]\n",
		strings.Join(app.Commands(), "|"))
}
