// Command assistant runs the data assistant steps from a terminal: KPI
// consolidation, sheet analysis, Drive search and export, knowledge base
// ingestion, grounded questions and the full per-client pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/app"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/config"
)

var (
	verbose bool
	root    string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Assistente de dados: KPIs de mídia, Drive e relatórios",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&root, "root", "r", "", "Workspace root (default: APP_ROOT or current dir)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(kpisCmd, sheetCmd, matrixCmd, previewCmd, xlsx2txtCmd)
	rootCmd.AddCommand(searchCmd, downloadCmd, ingestCmd, updateCmd)
	rootCmd.AddCommand(askCmd, reportCmd, pipelineCmd, runAllCmd)
}

// loadConfig applies the global flags on top of the environment.
func loadConfig() config.Config {
	cfg := config.FromEnv()
	if root != "" {
		cfg = cfg.WithRoot(root)
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg
}

// withApp wires the application for one command and tears it down after.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg := loadConfig()
	log := app.NewLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", err)
		os.Exit(1)
	}
}
