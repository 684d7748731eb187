package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/camera6912/orb-trader/internal/audit"
	"github.com/camera6912/orb-trader/internal/engine"
	"github.com/camera6912/orb-trader/internal/execution"
	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/camera6912/orb-trader/internal/infra/feed"
	"github.com/camera6912/orb-trader/internal/notify"
	"github.com/camera6912/orb-trader/internal/status"
	"github.com/camera6912/orb-trader/internal/storage"
	"github.com/camera6912/orb-trader/internal/strategy"
)

// App is the trading process, built by Wire.
type App struct {
	Config       *infra.Config
	Lock         InstanceLock
	Store        *storage.EventStore
	Orchestrator *engine.Orchestrator
	Feed         *feed.QuoteFeed
	Notifier     *notify.WebhookNotifier
	Status       *status.Server
	Metrics      *infra.Metrics
}

// Run recovers today's session, starts the gateways and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Orchestrator.RecoverFromWAL(ctx, time.Now()); err != nil {
		return fmt.Errorf("failed to recover from WAL: %w", err)
	}

	a.Notifier.Start(ctx)
	defer a.Notifier.Stop()

	if a.Status != nil {
		a.Status.Start(a.Config.Status.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.Status.Shutdown(shutdownCtx); err != nil {
				slog.Error("Status server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	// Start the session loop before any producer can fill the inbox.
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Orchestrator.Run(ctx)
	}()
	slog.InfoContext(ctx, "✅ Orchestrator (session loop) started")

	if a.Feed != nil {
		if err := a.Feed.Connect(ctx); err != nil {
			slog.Error("Failed to connect quote feed", slog.Any("error", err))
		}
		defer a.Feed.Disconnect()
		slog.InfoContext(ctx, "✅ QuoteFeed started", slog.Int("symbols", len(a.Config.Feed.Symbols)))
	}

	slog.InfoContext(ctx, "✨ ORB paper trader fully operational. Press Ctrl+C to exit.")

	<-done
	slog.Info("👋 Shutting down gracefully...")
	return nil
}

// Exporter dumps stored session reports without taking the instance lock,
// so it can run next to a live trader.
type Exporter struct {
	Store *storage.EventStore
}

// Export writes every stored report to path in format (csv, json or parquet).
func (e *Exporter) Export(ctx context.Context, path, format string) (int, error) {
	saver := storage.NewReportSaver(format)
	if saver == nil {
		return 0, fmt.Errorf("unsupported export format %q (use: csv, json, parquet)", format)
	}

	reports, err := e.Store.ListReports(ctx)
	if err != nil {
		return 0, err
	}
	rows := storage.ToRows(reports)
	if err := saver.Save(rows, path); err != nil {
		return 0, fmt.Errorf("failed to export reports: %w", err)
	}
	return len(rows), nil
}

// Auditor re-runs journaled sessions offline with the configured strategy.
type Auditor struct {
	Store    *storage.EventStore
	Engine   execution.Engine
	Filter   *strategy.DayFilter
	History  engine.MarketData
	Schedule engine.Schedule
	Plan     strategy.PlanConfig
}

// Audit replays session and compares the result with its stored report.
func (a *Auditor) Audit(ctx context.Context, session string) (*audit.Result, error) {
	if _, err := time.Parse(time.DateOnly, session); err != nil {
		return nil, fmt.Errorf("invalid session date %q: want YYYY-MM-DD", session)
	}
	res, err := audit.NewReplayer(a.Store).RunReplay(ctx, session, engine.Options{
		Engine:   a.Engine,
		Filter:   a.Filter,
		History:  a.History,
		Plan:     a.Plan,
		Schedule: a.Schedule,
		DumpPath: os.DevNull,
	})
	if err != nil {
		return nil, err
	}

	// The verdict is served next to the report by the status server.
	if err := a.Store.UpsertMetadata(ctx, storage.AuditKey(session), res.Verdict(), time.Now().Unix()); err != nil {
		slog.Warn("Failed to record audit verdict", slog.String("session", session), slog.Any("error", err))
	}
	return res, nil
}
