package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/nota-flow/internal/cli"
	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/config"
)

var (
	cfgFile string
	version = "dev"
	cfg     config.Config
	rootCmd = &cobra.Command{
		Use:   "nota",
		Short: "🧾 Receipt and invoice importer",
		Long: `nota-flow turns purchase receipts into structured transactions.

It reads receipt emails from Gmail, photos of paper receipts and NFC-e
QR codes, extracts merchant, date, total and items, and stores them
for later review.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/nota/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("user", "", "user id whose transactions are read and written")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("user.id", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(nfceCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(transactionsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	interrupts := cli.NewInterruptHandler(os.Stderr, "nota")
	ctx, cancel := interrupts.HandleInterrupts(context.Background(), true)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		if !interrupts.WasInterrupted() {
			fmt.Fprintln(os.Stderr, cli.FormatError(userMessage(err)))
		}
		slog.Debug("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/nota", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NOTA")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded

	logger, err := common.SetupLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)

	return nil
}

// userMessage picks what to print for a failed command. Errors meant for the
// user are shown as is; configuration errors name the missing setting.
func userMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	var quotaErr *common.QuotaError
	if errors.As(err, &quotaErr) {
		return quotaErr.Error()
	}
	return err.Error()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nota %s\n", version)
		},
	}
}
