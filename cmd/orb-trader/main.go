package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/camera6912/orb-trader/internal/app"
	"github.com/camera6912/orb-trader/internal/infra"
)

func main() {
	configPath := flag.String("config", infra.ResolveConfigPath(), "path to config.yaml")
	exportPath := flag.String("export", "", "write stored session reports to this file and exit")
	exportFormat := flag.String("format", "csv", "export format: csv, json or parquet")
	auditDate := flag.String("audit", "", "replay the journaled session of this date (YYYY-MM-DD) and exit")
	flag.Parse()

	if *exportPath != "" {
		os.Exit(runExport(app.ConfigPath(*configPath), *exportPath, *exportFormat))
	}
	if *auditDate != "" {
		os.Exit(runAudit(app.ConfigPath(*configPath), *auditDate))
	}

	a, cleanup, err := InitializeApp(app.ConfigPath(*configPath))
	if err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	infra.PrintBanner(a.Config)

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		slog.Error("❌ Trader stopped with error", slog.Any("error", err))
		cleanup()
		os.Exit(1)
	}
}

func runExport(path app.ConfigPath, out, format string) int {
	e, cleanup, err := InitializeExporter(path)
	if err != nil {
		slog.Error("failed to initialize exporter", "error", err)
		return 1
	}
	defer cleanup()

	n, err := e.Export(context.Background(), out, format)
	if err != nil {
		slog.Error("export failed", "error", err)
		return 1
	}
	fmt.Printf("exported %d session reports to %s\n", n, out)
	return 0
}

func runAudit(path app.ConfigPath, date string) int {
	a, cleanup, err := InitializeAuditor(path)
	if err != nil {
		slog.Error("failed to initialize auditor", "error", err)
		return 1
	}
	defer cleanup()

	res, err := a.Audit(context.Background(), date)
	if err != nil {
		slog.Error("audit failed", "error", err)
		return 1
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if !res.Matches {
		return 2
	}
	return 0
}
