// Package cli implements the platform-cli command tree.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "platform-cli",
	Short: "Provision and manage owned compute, storage and DNS resources",
	Long: `platform-cli creates cloud resources tagged with an owner and a creator,
and later lists and operates only on the resources carrying both tags.

Identity options can be given as flags, as PLATFORM_CLI_* environment
variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_REGION are
honored too), or in $HOME/.platform-cli/config.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Errors are printed once here.
func Execute(version string) error {
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("✗ %v", err)
		return err
	}
	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(config.KeyAccessKey, "", "access key id")
	flags.String(config.KeySecretKey, "", "secret access key")
	flags.String(config.KeyOwner, "", "owner recorded on and required of every resource")
	flags.String(config.KeyRegion, "", "provider region (default us-east-1)")
	flags.String(config.KeyEndpoint, "", "custom API endpoint, e.g. a local emulator")
	flags.String(config.KeyCatalogFile, "", "instance type and image catalog (YAML or JSON)")
	flags.String(config.KeyCredentialsFile, "", "shared credentials file (default ~/.aws/credentials)")
	flags.IntP(config.KeyVerbosity, "v", 0, "log verbosity (1 logs every provider call)")

	for _, key := range config.Keys() {
		// flags and keys share names, so Lookup never returns nil here
		_ = config.BindFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(
		computeCmd,
		storageCmd,
		dnsCmd,
		configureCmd,
		configCmd,
		versionCmd,
	)
}
