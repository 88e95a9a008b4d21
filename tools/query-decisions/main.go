package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/wardenhq/warden/internal/analytics"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/observability"
)

func main() {
	logger, err := observability.InitLogger("query-decisions")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var logID string
	var userID string
	var limit int
	var dsn string
	flag.StringVar(&logID, "log-id", "", "decision log ID")
	flag.StringVar(&userID, "user", "", "user ID")
	flag.IntVar(&limit, "limit", 100, "maximum events for a user query")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.Parse()

	if logID == "" && userID == "" {
		fmt.Fprintln(os.Stderr, "log-id or user required")
		os.Exit(1)
	}
	if dsn == "" {
		cfg := config.Load()
		dsn = cfg.ClickHouseDSN
	}

	ch, err := analytics.InitClickHouse(dsn, logger, observability.NewNoOpRegistry())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer ch.Close()

	ctx := context.Background()
	var events []analytics.Event
	if logID != "" {
		events, err = ch.GetEventsByLogID(ctx, logID)
	} else {
		events, err = ch.GetEventsByUser(ctx, userID, limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "query events: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fmt.Fprintf(os.Stderr, "encode events: %v\n", err)
		os.Exit(1)
	}
}
