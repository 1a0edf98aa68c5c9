// Package commands implements walletctl, the operator CLI for preparing and
// inspecting walletd root keys offline.
package commands

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "walletctl",
		Short:        "Operator tools for the walletd root key",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCmd(), sealCmd(), addressCmd(), verifyCmd())
	return root
}
