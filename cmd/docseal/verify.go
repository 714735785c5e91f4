package main

import (
	"errors"
	"fmt"
	"io"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"

	"github.com/spf13/cobra"
)

// newVerifyCmd checks a link's signature offline with the shared secret. It
// does not consult the database, so it cannot tell a forged link from one
// for a document that was never stored.
func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var link, data, signature string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a verification link signature offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if link != "" {
				data, signature, err = crypto.ParseVerificationURL(link)
				if err != nil {
					return err
				}
			}
			if data == "" || signature == "" {
				return errors.New("either --url or both --data and --signature are required")
			}
			engine, err := crypto.NewHMACEngine(cfg.SigningSecret)
			if err != nil {
				return fmt.Errorf("SIGNING_SECRET: %w", err)
			}
			return verifyOffline(cmd.OutOrStdout(), engine, data, signature)
		},
	}
	cmd.Flags().StringVar(&link, "url", "", "full verification URL")
	cmd.Flags().StringVar(&data, "data", "", "encoded payload")
	cmd.Flags().StringVar(&signature, "signature", "", "hex signature")
	return cmd
}

var errSignatureInvalid = errors.New("signature invalid")

func verifyOffline(w io.Writer, engine *crypto.HMACEngine, data, signature string) error {
	payload, err := crypto.DecodePayload(data)
	if err != nil {
		return err
	}
	if !engine.Verify(payload, signature) {
		fmt.Fprintln(w, "status=invalid")
		return errSignatureInvalid
	}
	printPayload(w, payload)
	return nil
}

func printPayload(w io.Writer, p domain.SignaturePayload) {
	fmt.Fprintln(w, "status=valid")
	fmt.Fprintf(w, "document.id=%s document.number=%s\n", p.DocumentID, p.DocumentNumber)
	fmt.Fprintf(w, "issue_date=%s signer=%s role=%s signed_at=%s\n", p.IssueDate, p.SignerName, p.SignerRole, p.Timestamp)
}
