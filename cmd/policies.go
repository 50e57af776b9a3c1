package cmd

import (
	"fmt"

	"github.com/hookjudge-ai/hookjudge/internal/config"
	"github.com/spf13/cobra"
)

func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List builtin judge policies",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.Builtins() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
