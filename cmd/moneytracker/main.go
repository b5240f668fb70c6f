package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moneytracker/internal/cli"
	"moneytracker/internal/config"
	"moneytracker/internal/log"
)

var (
	envFile string
	cfg     *config.Config
	logger  *log.Logger

	rootCmd = &cobra.Command{
		Use:   "moneytracker",
		Short: "Personal finance ledger",
		Long: `moneytracker keeps accounts, categories, transactions, savings projects and
recurring templates in a local ledger, derives balances and statistics from
them, and materializes recurring transactions on a schedule.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		cli.Fatal(err)
	}
}

// initConfig loads the environment and configuration before any subcommand.
// Logs go to stderr so exports can be piped from stdout.
func initConfig(_ *cobra.Command, _ []string) error {
	if envFile != "" {
		cli.LoadEnvFile(envFile)
	} else {
		cli.LoadEnvFile()
	}

	var err error
	cfg, err = cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger = cli.SetupLogger(cfg, os.Stderr)
	return nil
}
