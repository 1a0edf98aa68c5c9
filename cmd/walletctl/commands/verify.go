package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"walletd/go-backend/internal/derivation"
)

var errSignatureMismatch = errors.New("signature does not verify")

func verifyCmd() *cobra.Command {
	var (
		account     string
		signature   string
		messagePath string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a walletd signature against an SS58 address or hex public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := parseAccount(account)
			if err != nil {
				return err
			}
			sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}
			msg, err := readMessage(cmd.InOrStdin(), messagePath)
			if err != nil {
				return err
			}
			if !pub.Verify(msg, sig) {
				return errSignatureMismatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "SS58 address or 0x hex public key")
	cmd.Flags().StringVar(&signature, "signature", "", "hex signature")
	cmd.Flags().StringVar(&messagePath, "message", "-", "file holding the signed bytes, - for stdin")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}

func parseAccount(raw string) (*derivation.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "0x") {
		b, err := hex.DecodeString(raw[2:])
		if err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
		return derivation.NewPublicKey(b)
	}
	pub, _, err := derivation.ParseSS58Address(raw)
	return pub, err
}

func readMessage(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
