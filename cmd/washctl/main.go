// Command washctl is the operator CLI for the car wash services.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "washctl",
		Short:        "Operate the car wash services",
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newTokenCmd(), newRecommendCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
