package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/uzadmin/nettool/internal/cli"
	"github.com/uzadmin/nettool/internal/config"
	"github.com/uzadmin/nettool/internal/probe"
)

func main() {
	cfg := config.Load()

	// Everything goes to stdout, operational lines carry a [TCP]/[UDP] tag
	logger := log.New(os.Stdout, "", cfg.LogFlags())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	dispatcher := cli.NewDispatcher(filepath.Base(os.Args[0]), probe.NewRunner(cfg, logger), os.Stdout)
	code := dispatcher.Run(ctx, os.Args[1:])

	cancel()
	os.Exit(code)
}
