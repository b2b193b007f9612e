package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/smallbiznis/staydesk/internal/tier"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Print the plan catalog as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tier.Plans())
	},
}
