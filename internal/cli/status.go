package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/vault"
)

type statusInfo struct {
	SecretsFile   string           `json:"secrets_file"`
	FormatVersion int              `json:"format_version"`
	Format        string           `json:"format"`
	Scheme        vault.SchemeInfo `json:"scheme"`
	KeyBackend    string           `json:"key_backend"`
	Accounts      int              `json:"accounts"`
	State         string           `json:"state"`
}

func newStatusCommand(a *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show secrets file status",
		Long:  "Display the format version, encryption scheme, account count and lock state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.engine.State(cmd.Context())
			if err != nil {
				return err
			}

			state := "locked"
			switch {
			case !st.Version.Encrypted():
				state = "plaintext"
			case st.Unlocked:
				state = "unlocked"
			}

			result := statusInfo{
				SecretsFile:   a.engine.Path,
				FormatVersion: int(st.Version),
				Format:        st.Version.String(),
				Scheme:        vault.DescribeScheme(int(st.Version), st.Salt),
				KeyBackend:    a.cfg.KeyBackend,
				Accounts:      st.Accounts,
				State:         state,
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, result)
			}

			lines := []string{
				fmt.Sprintf("Secrets file: %s", result.SecretsFile),
				fmt.Sprintf("Format: %s", result.Format),
				fmt.Sprintf("Cipher: %s", result.Scheme.Cipher),
			}
			if result.Scheme.KDF != "" {
				lines = append(lines, fmt.Sprintf("KDF: %s (iterations %d, salt %d bytes)",
					result.Scheme.KDF, result.Scheme.Iterations, result.Scheme.SaltLength))
			}
			lines = append(lines,
				fmt.Sprintf("Key source: %s (backend %s)", result.Scheme.KeySource, result.KeyBackend),
				fmt.Sprintf("Accounts: %d", result.Accounts),
				fmt.Sprintf("State: %s", result.State),
			)
			for _, line := range lines {
				if err := writeOutput(out, "%s\n", line); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")

	return cmd
}
