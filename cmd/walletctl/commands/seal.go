package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"walletd/go-backend/internal/securestore"
	"walletd/go-backend/internal/vault"
)

func sealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seal",
		Short: "Encrypt a seed under a passphrase for use as WALLET_SEED",
		Long: "Reads the seed and a passphrase (twice) from the terminal and prints a\n" +
			"sealed: value. walletd opens it with WALLET_PASSPHRASE at startup.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			seed, err := p.readSecret("Seed: ")
			if err != nil {
				return err
			}
			seed = strings.TrimSpace(seed)
			material, err := vault.Load(seed)
			if err != nil {
				return err
			}
			if material.Kind() == vault.SeedSealed {
				return errors.New("seed is already sealed")
			}
			passphrase, err := p.readNewSecret("Passphrase: ")
			if err != nil {
				return err
			}
			if passphrase == "" {
				return errors.New("passphrase must not be empty")
			}
			sealed, err := securestore.Seal(passphrase, []byte(seed))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}
