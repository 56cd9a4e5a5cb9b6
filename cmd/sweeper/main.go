// Command sweeper runs one expiry sweep over pending reservations
// whose slot has passed, auto-declining them. It is intended to run
// from cron; per-record failures are reported but do not fail the run.
package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/config"
	"github.com/civicworks/facility-reservation/internal/database"
	"github.com/civicworks/facility-reservation/internal/repository"
)

var CLI struct {
	DryRun  bool          `help:"Report what would be declined without changing anything."`
	Verbose bool          `help:"Log each declined reservation."`
	Timeout time.Duration `help:"Abort the sweep after this long." default:"5m"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("sweeper"),
		kong.Description("Auto-decline pending reservations whose time slot has passed."),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "sweeper"})
	if CLI.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database", "err", err)
	}
	defer db.Close()

	// Unlike the API server the sweeper writes its notification and
	// audit rows directly; cron jobs should not depend on the broker.
	store := repository.NewReservationStore(db)
	sweeper := booking.NewSweeper(store, clock.NewSystem(),
		booking.SweeperNotifier(repository.NewNotificationRepo(db)),
		booking.SweeperAuditor(repository.NewAuditRepo(db)))

	ctx, cancel := context.WithTimeout(context.Background(), CLI.Timeout)
	defer cancel()

	report, err := sweeper.Run(ctx, CLI.DryRun)
	if err != nil {
		logger.Fatal("sweep failed", "err", err)
	}

	for _, d := range report.Declines {
		logger.Debug("declined", "reservation", d.ID, "reference", d.Reference,
			"date", d.ReservationDate.Format("2006-01-02"), "slot", d.TimeSlot)
	}
	for _, f := range report.Failures {
		logger.Warn("record failed", "reservation", f.ReservationID, "err", f.Err)
	}
	logger.Info("sweep complete",
		"dry_run", report.DryRun,
		"scanned", report.Scanned,
		"declined", report.Declined,
		"skipped", report.Skipped,
		"failed", len(report.Failures))

	kctx.Exit(0)
}
