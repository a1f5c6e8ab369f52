// Command worker runs the periodization batch jobs outside the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"alcyxob/fitness-planner/internal/app"
	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/worker"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "worker",
	Short:         "Batch jobs for the fitness planner",
	Long:          "Runs the frequency migration sweep, workout cache warm-up and catalog publishing against the configured backends.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Directory containing config.yaml")
}

// session is one connected process: config, logger, services and the job runner.
type session struct {
	cfg    config.Config
	log    *logger.Logger
	app    *app.App
	runner *worker.Runner
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &session{
		cfg:    cfg,
		log:    log,
		app:    a,
		runner: worker.NewRunner(a.Cache, a.Frequencies, a.Storage, log),
	}, nil
}

func (s *session) Close() {
	s.app.Close()
	s.log.Sync()
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
