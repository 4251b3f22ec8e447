package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/tenderscan/internal/log"
)

// NewRootCmd creates the root command for tenderscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenderscan",
		Short: "Crawl and aggregate Taiwan government tender bulletins",
		Long: `tenderscan queries the Government e-Procurement System tender bulletin
(web.pcc.gov.tw) one fiscal year at a time, saves every year as a CSV file,
and groups repeated tenders by title and issuing authority.

Years are Minguo (ROC) years: 113 is 2024.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewAggregateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger installs a masking logger on stderr as the default logger.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)
	return logger
}
