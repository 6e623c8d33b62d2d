// Command kpictl runs the scheduled KPI month jobs: instantiating next
// month's scorecards from templates and closing a finished month.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	kpiapp "github.com/kpiplatform/backend/internal/application/kpi"
	"github.com/kpiplatform/backend/internal/domain/shared"
	"github.com/kpiplatform/backend/internal/infrastructure/config"
	"github.com/kpiplatform/backend/internal/infrastructure/logger"
	"github.com/kpiplatform/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		user    string
		month   string
		timeout time.Duration
	)

	flag.StringVar(&user, "user", "scheduler", "User recorded in the audit log")
	flag.StringVar(&month, "month", "", "Target month YYYY-MM for generate (default: the month after today)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum run time")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if db.Driver() == config.DriverSQLite {
		if err := db.AutoMigrate(ctx); err != nil {
			log.Fatal("failed to migrate sqlite schema", zap.Error(err))
		}
	}

	svc := kpiapp.NewKPIService(
		persistence.NewGormKPIRepository(db.DB),
		persistence.NewGormIndicatorRepository(db.DB),
		persistence.NewGormBonusRepository(db.DB),
		persistence.NewGormMonthStatusRepository(db.DB),
		persistence.NewGormKPITransactionScope(db.DB),
		log,
	)

	var result any
	switch args[0] {
	case "generate-next-month":
		if month == "" {
			result, err = svc.GenerateNextMonth(ctx, user)
			break
		}
		m, perr := shared.ParsePeriod(month)
		if perr != nil {
			log.Fatal("invalid -month", zap.Error(perr))
		}
		result, err = svc.GenerateMonth(ctx, m, user)

	case "close-month":
		if len(args) < 2 {
			log.Fatal("month required, usage: kpictl close-month YYYY-MM")
		}
		m, perr := shared.ParsePeriod(args[1])
		if perr != nil {
			log.Fatal("invalid month", zap.Error(perr))
		}
		result, err = svc.CloseMonth(ctx, m, user)

	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("command failed", zap.String("command", args[0]), zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal("failed to write result", zap.Error(err))
	}
}

func printUsage() {
	fmt.Println(`Usage: kpictl [options] <command> [args]

Commands:
  generate-next-month     Create next month's KPIs from active templates
  close-month YYYY-MM     Close a month and finalize outstanding bonuses

Options:
  -user string            User recorded in the audit log (default "scheduler")
  -month YYYY-MM          Generate for this month instead of next month
  -timeout duration       Maximum run time (default 5m)

Examples:
  kpictl generate-next-month
  kpictl -month 2025-07 generate-next-month
  kpictl -user director close-month 2025-05`)
}
