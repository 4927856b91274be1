package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/returns-engine/eligibility"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one request and print the verdict",
	Example: `  returns evaluate --received 2025-06-05 --channel online --motive return
  returns evaluate --received 2024-06-01 --channel presencial --motive falla --used --report -o yaml`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	f := evaluateCmd.Flags()
	f.String("received", "", "date the product was received (YYYY-MM-DD)")
	f.String("channel", "", "purchase channel (online, in_person)")
	f.String("motive", "", "motive (exchange, return, defect)")
	f.Bool("used", false, "the product was used")
	f.Bool("no-tags", false, "the product no longer has its original tags")
	f.String("observations", "", "free-text observations, carried along")
	f.Bool("report", false, "print the full report (facts, policy, citations)")
	f.StringP("output", "o", "json", "output format (json, yaml)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	output, _ := f.GetString("output")
	if output != "json" && output != "yaml" {
		return fmt.Errorf("unknown output format %q (use json or yaml)", output)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	facts, err := factsFromFlags(cmd)
	if err != nil {
		return err
	}

	verdict, err := newEvaluator(cfg).Evaluate(facts, cfg.Policy)
	if err != nil {
		var inputErr *eligibility.InputError
		if errors.As(err, &inputErr) {
			printInputError(cmd.ErrOrStderr(), inputErr)
		}
		return err
	}

	var out any = verdict
	if report, _ := f.GetBool("report"); report {
		out = eligibility.BuildReport(facts, verdict, cfg.Policy)
	}
	return writeOutput(cmd.OutOrStdout(), output, out)
}

// factsFromFlags reads the facts. Unknown channel and motive values are
// passed through so validation reports them with the accepted set.
func factsFromFlags(cmd *cobra.Command) (eligibility.RequestFacts, error) {
	f := cmd.Flags()
	received, _ := f.GetString("received")
	channel, _ := f.GetString("channel")
	motive, _ := f.GetString("motive")
	used, _ := f.GetBool("used")
	noTags, _ := f.GetBool("no-tags")
	observations, _ := f.GetString("observations")

	facts := eligibility.RequestFacts{
		ProductUsed:     used,
		HasOriginalTags: !noTags,
		Observations:    strings.TrimSpace(observations),
	}
	if received != "" {
		d, err := eligibility.ParseDate(received)
		if err != nil {
			return facts, fmt.Errorf("--received: %w", err)
		}
		facts.ReceivedDate = d
	}
	if channel != "" {
		if ch, err := eligibility.ParseChannel(channel); err == nil {
			facts.PurchaseChannel = ch
		} else {
			facts.PurchaseChannel = eligibility.Channel(channel)
		}
	}
	if motive != "" {
		if m, err := eligibility.ParseMotive(motive); err == nil {
			facts.Motive = m
		} else {
			facts.Motive = eligibility.Motive(motive)
		}
	}
	return facts, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
