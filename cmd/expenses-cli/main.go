package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/cli"
	"github.com/pranit27-debug/Expense-Tracker/internal/client"
	"github.com/pranit27-debug/Expense-Tracker/internal/config"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	// Diagnostics go to stderr so command output stays clean.
	logger := cli.SetupLogger(applog.ComponentClient, cfg.LogLevel, os.Stderr)
	cfg = cli.MustLoadConfig(logger, (*config.Config).ValidateClient)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	apiClient, err := client.New(cfg.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
		client.WithLogger(logger))
	if err != nil {
		cli.Fatal(logger, "Invalid API URL", err)
	}

	a := &app{
		api:    apiClient,
		queue:  client.NewQueue(client.NewFileStore(cfg.PendingFile), apiClient, client.WithQueueLogger(logger)),
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		errOut: os.Stderr,
		topN:   cfg.SummaryTopN,
		logger: logger,
		today:  time.Now,
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
