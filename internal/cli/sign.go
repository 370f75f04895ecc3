package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/susu3304/settlerelay/internal/settlement"
	"github.com/susu3304/settlerelay/internal/signature"
)

// SignOptions holds flags for the sign command.
type SignOptions struct {
	WalletID  string
	Amount    string
	RoundID   string
	Timestamp int64
	Secret    string
}

// NewSignCommand creates the sign command, which prints a signed
// /credit-currency request body.
func NewSignCommand() *cobra.Command {
	opts := &SignOptions{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a signed /credit-currency request body",
		Example: "  settlerelay sign --wallet w1 --amount 100 --round r1\n" +
			"  settlerelay sign --wallet w1 --amount -25 --round r2 --secret s3cret",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Secret == "" {
				_ = godotenv.Load()
				opts.Secret = os.Getenv("HMAC_SECRET")
			}
			if opts.Timestamp == 0 {
				opts.Timestamp = time.Now().Unix()
			}

			body, err := signedRequest(opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(body)
		},
	}

	cmd.Flags().StringVar(&opts.WalletID, "wallet", "", "wallet id")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "signed amount, negative for a debit")
	cmd.Flags().StringVar(&opts.RoundID, "round", "", "round id")
	cmd.Flags().Int64Var(&opts.Timestamp, "timestamp", 0, "unix seconds (default now)")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "HMAC secret (default $HMAC_SECRET)")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("round")

	return cmd
}

func signedRequest(opts *SignOptions) (*settlement.Request, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("HMAC secret is required (--secret or HMAC_SECRET)")
	}

	req := &settlement.Request{
		WalletID:  opts.WalletID,
		Amount:    json.Number(opts.Amount),
		RoundID:   opts.RoundID,
		Timestamp: json.Number(strconv.FormatInt(opts.Timestamp, 10)),
	}
	if _, err := req.ParseAmount(); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", opts.Amount, err)
	}

	sig, err := signature.Sign(req.Payload(), opts.Secret)
	if err != nil {
		return nil, err
	}
	req.Signature = sig
	return req, nil
}
