package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	"github.com/tigerroll/paytest/pkg/batch/core/shutdown"
	"github.com/tigerroll/paytest/pkg/batch/engine/pool"
	"github.com/tigerroll/paytest/pkg/batch/engine/scheduler"
	logger "github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const startTimeout = 15 * time.Second

// main is the entry point of the application.
// SIGINT and SIGTERM cancel the run context; the shutdown coordinator then drains the worker pool.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	if err := newRootCommand(&exitCode).ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		exitCode = 1
	}
	stop()
	os.Exit(exitCode)
}

func newRootCommand(exitCode *int) *cobra.Command {
	var configPath, envFilePath string

	cmd := &cobra.Command{
		Use:   "paytest <host;user;password> <test-plan-file>",
		Short: "Fires scheduled payment batches at a transaction service and records throughput",
		Long: `paytest reads a test plan whose lines are

  scheduledTime;paymentFile;procedureName;portionSize

and runs every entry at its time (ISO local date-time, or ASAP). Each run submits
the payment file in portions, then appends one row to test-results-<timestamp>.csv
and one row per failed payment to failed-payments-<timestamp>.csv next to the plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			logger.Infof("Performance Test Tool started!")
			if len(args) < 2 {
				logger.Errorf("Missing parameters!")
				*exitCode = 1
				return nil
			}
			*exitCode = run(cmd.Context(), args[0], args[1], configPath, envFilePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("PAYTEST_CONFIG"), "YAML configuration file")
	cmd.Flags().StringVar(&envFilePath, "env-file", os.Getenv("ENV_FILE_PATH"), ".env file (defaults to ./.env)")
	return cmd
}

// run executes one test plan and returns the process exit code.
func run(ctx context.Context, connection, planPath, configPath, envFilePath string) int {
	cfg, err := config.LoadConfig(envFilePath, configPath)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return 1
	}
	logger.SetLogLevel(cfg.Paytest.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Paytest.System.Logging.Level)

	if err := cfg.ApplyConnectionString(connection); err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	if err := cfg.ValidateConnection(); err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	if info, err := os.Stat(planPath); err != nil || info.IsDir() {
		logger.Errorf("Test plan file (%s) does not exist!", planPath)
		return 1
	}

	var (
		planScheduler *scheduler.Scheduler
		workerPool    *pool.ScheduledPool
	)
	app := fx.New(
		fx.Options(GetApplicationOptions(cfg, planPath)...),
		fx.Populate(&planScheduler, &workerPool),
	)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return 1
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return 1
	}

	coordinator := shutdown.New(workerPool, cfg.Paytest.Scheduler.DrainTimeout, app.Stop)
	if _, err := planScheduler.SchedulePlan(ctx, planPath); err != nil {
		logger.Errorf("Test plan could not be read completely: %v", err)
	}

	outcome := coordinator.Run(ctx)
	if outcome.Err != nil {
		return 1
	}
	return 0
}
