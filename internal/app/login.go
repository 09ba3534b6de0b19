package app

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/output"
)

var (
	loginEmail    string
	loginPassword string

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Save your free-work.com account",
		Long: `Store the email and password autoapply signs in with.

Both values are encrypted with a key generated in the data directory
(key.key) and are only decrypted in memory while a session runs. Missing
values are prompted for on stdin.

The account is not verified here; the next 'autoapply run' signs in with it.`,
		Example: `  # Prompt for the password
  autoapply login --email you@example.com

  # Non-interactive
  echo "$PASSWORD" | autoapply login --email you@example.com`,
		RunE: runLogin,
	}
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted when omitted)")

	RootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	in, out := bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout()

	creds := model.Credentials{Email: loginEmail, Password: loginPassword}
	var err error
	if creds.Email == "" {
		if creds.Email, err = readLine(in, out, "Email: "); err != nil {
			return err
		}
	}
	if creds.Password == "" {
		if creds.Password, err = readLine(in, out, "Password: "); err != nil {
			return err
		}
	}

	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	if err := cfgStore.SaveCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "%s Credentials saved (encrypted in %s)\n", output.Green("✓"), cfgStore.Dir())
	return nil
}
