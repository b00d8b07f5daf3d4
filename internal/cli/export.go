package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/export"
)

func newExportCommand(a *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export PATH",
		Short: "Export the accounts for another authenticator app",
		Long: `Write every account to a file another authenticator app can import.

Only the andOTP JSON format is supported. The file holds the seeds in clear
text and is created with owner-only permissions.

Example:
  tetripin export andotp.json
  tetripin export andotp.json --format andotp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(format, export.FormatAndOTP) {
				return fmt.Errorf("unsupported export format %q: only andotp is supported for now", format)
			}
			if err := a.open(cmd); err != nil {
				return err
			}

			s, seeds, err := a.engine.Secrets(cmd.Context())
			if err != nil {
				return err
			}
			n, err := export.WriteAndOTP(args[0], s, seeds, a.cfg.ExportIssuer, a.now())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "Done: %d account(s) written to %s\n", n, args[0])
		},
	}

	cmd.Flags().StringVar(&format, "format", export.FormatAndOTP, "App format to use. Only andotp is supported for now.")

	return cmd
}

func newQRCommand(a *App) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "qr ACCOUNT PATH",
		Short: "Write a QR code to enroll an account on a phone",
		Long: `Write a PNG QR code holding the otpauth:// URI of an account.

Example:
  tetripin qr github github.png
  tetripin qr github github.png --size 512`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			seed, err := a.seed(cmd, args[0])
			if err != nil {
				return err
			}
			if err := export.WriteQRCode(args[1], strings.TrimSpace(args[0]), a.cfg.ExportIssuer, seed, size); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "QR code written to %s\n", args[1])
		},
	}

	cmd.Flags().IntVar(&size, "size", export.DefaultQRSize, "Image size in pixels")

	return cmd
}
