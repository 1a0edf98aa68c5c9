package commands

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"walletd/go-backend/internal/derivation"
	"walletd/go-backend/internal/vault"
)

func addressCmd() *cobra.Command {
	var (
		user   string
		prefix uint8
	)
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the account a user identifier maps to under WALLET_SEED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := os.Getenv("WALLET_SEED")
			if seed == "" {
				return fmt.Errorf("WALLET_SEED is not set")
			}
			v, err := vault.Open(seed, os.Getenv("WALLET_PASSPHRASE"))
			if err != nil {
				return err
			}
			account, err := v.RootAccount()
			if err != nil {
				return err
			}
			if user != "" {
				if account, err = derivation.Derive(account, user); err != nil {
					return err
				}
			}
			pub := account.Public()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "public_key: 0x%s\n", hex.EncodeToString(pub.Bytes()))
			fmt.Fprintf(out, "address:    %s\n", derivation.SS58Address(pub, prefix))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user identifier; the root account when empty")
	cmd.Flags().Uint8Var(&prefix, "prefix", derivation.GenericSS58Prefix, "SS58 network prefix")
	return cmd
}
