package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/catalog"
	"github.com/blackwell-systems/platform-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration file",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after flags, environment and the config file are applied. The secret key is masked.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.Display()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set KEY VALUE",
	Short:     "Set a key in the config file",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		value := args[1]
		if args[0] == config.KeySecretKey {
			value = config.Mask(value)
		}
		color.Green("✓ %s = %s", args[0], value)
		return nil
	},
}

var configCatalogInitCmd = &cobra.Command{
	Use:   "catalog-init FILE",
	Short: "Write the built-in catalog to a file for editing",
	Long: `Write the built-in instance types and images to FILE as YAML, or as JSON
when FILE ends in .json. Point catalog-file at the result to use it.

An existing file is left alone unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if err := catalog.Save(catalog.Default(), path); err != nil {
			return err
		}
		color.Green("✓ Catalog written to %s", path)
		fmt.Printf("  Use it with: platform-cli config set %s %s\n", config.KeyCatalogFile, path)
		return nil
	},
}

func init() {
	configCatalogInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configGetCmd, configSetCmd, configCatalogInitCmd)
}
