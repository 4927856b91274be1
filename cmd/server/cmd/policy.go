package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective policy",
	Long: `Prints the policy after defaults, the config file and RETURNS_POLICY_*
variables are applied. Fails like serve would on an invalid value.`,
	RunE: runPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.Flags().StringP("output", "o", "yaml", "output format (json, yaml)")
}

func runPolicy(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "json" && output != "yaml" {
		return fmt.Errorf("unknown output format %q (use json or yaml)", output)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), output, cfg.Policy)
}
