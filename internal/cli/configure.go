package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/config"
	"github.com/blackwell-systems/platform-cli/internal/credentials"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store the credential pair and verify it",
	Long: `Write --access-key and --secret-key as the [default] profile of the shared
credentials file, then check them with an identity call.

Other profiles already in the file are kept. The file is written even if
verification fails, so a typo can be fixed by running configure again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}

		store := credentials.NewStore(afero.NewOsFs(), cfg.CredentialsFile)
		if err := store.Save(credentials.Pair{AccessKey: cfg.AccessKey, SecretKey: cfg.SecretKey}); err != nil {
			return err
		}
		color.Green("✓ Credentials written to %s", store.Path())

		s, err := newSession()
		if err != nil {
			return err
		}

		color.Cyan("Verifying credentials...")
		ok, user, err := s.id.VerifyAWS(cmd.Context())
		if !ok {
			return err
		}
		color.Green("✓ Credentials valid for %s (%s)", user.Name, user.ARN)
		return nil
	},
}
