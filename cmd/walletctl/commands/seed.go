package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
)

func newSeedCmd() *cobra.Command {
	var (
		words  int
		rawHex bool
	)
	cmd := &cobra.Command{
		Use:   "new-seed",
		Short: "Generate a fresh root seed (BIP39 mnemonic or 0x hex)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rawHex {
				buf := make([]byte, 32)
				if _, err := rand.Read(buf); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "0x"+hex.EncodeToString(buf))
				return nil
			}
			bits, err := entropyBits(words)
			if err != nil {
				return err
			}
			entropy, err := bip39.NewEntropy(bits)
			if err != nil {
				return err
			}
			mnemonic, err := bip39.NewMnemonic(entropy)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
			return nil
		},
	}
	cmd.Flags().IntVar(&words, "words", 24, "mnemonic length: 12, 15, 18, 21 or 24")
	cmd.Flags().BoolVar(&rawHex, "hex", false, "print a raw 32-byte hex seed instead of a mnemonic")
	return cmd
}

func entropyBits(words int) (int, error) {
	switch words {
	case 12, 15, 18, 21, 24:
		return words / 3 * 32, nil
	default:
		return 0, fmt.Errorf("unsupported mnemonic length %d", words)
	}
}
