// Package cmd implements the returns CLI.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/warp/returns-engine/config"
	"github.com/warp/returns-engine/eligibility"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "returns",
	Short: "Returns, exchange and warranty eligibility engine",
	Long: `Evaluates whether a product exchange, return or warranty claim is
permitted under Ley 24.240 and the store's commercial policy, and keeps a
record of every request and its final decision.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("timezone", eligibility.DefaultTimeZone, "time zone in which today is computed")
	rootCmd.PersistentFlags().String("locale", string(eligibility.DefaultLocale), "verdict language (es, en)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the configuration with the flags of cmd applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newEvaluator builds an evaluator for the configured zone and locale.
func newEvaluator(cfg *config.Config) *eligibility.Evaluator {
	ev := eligibility.NewEvaluator()
	ev.Location = cfg.Evaluation.Location
	ev.Renderer = eligibility.NewRenderer(cfg.Evaluation.Locale)
	return ev
}

// printInputError lists field errors one per line.
func printInputError(w io.Writer, err *eligibility.InputError) {
	fmt.Fprintln(w, "invalid request:")
	for _, f := range err.Fields {
		fmt.Fprintf(w, "  %s: %s\n", f.Field, f.Message)
	}
}
