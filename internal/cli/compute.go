package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/catalog"
	"github.com/blackwell-systems/platform-cli/internal/compute"
)

var computeCmd = &cobra.Command{
	Use:     "compute",
	Aliases: []string{"ec2"},
	Short:   "Manage owned compute instances",
}

var computeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Launch one instance tagged with the owner",
	Long: `Launch exactly one instance tagged Owner=<owner> and CreatedBy=platform-cli.

The instance type and image must appear in the catalog (built-in unless
--catalog-file is set). Images may be given by catalog name or by id.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.compute(cmd.Context())
		if err != nil {
			return err
		}

		instanceType, _ := cmd.Flags().GetString("type")
		image, _ := cmd.Flags().GetString("image")

		color.Cyan("Launching instance (type=%s, image=%s)...",
			orDefault(instanceType, catalog.DefaultInstanceType),
			orDefault(image, catalog.DefaultImage))

		id, err := m.Create(cmd.Context(), instanceType, image)
		if err != nil {
			return err
		}

		color.Green("✓ Instance %s created", id)
		color.Cyan("\nRun 'platform-cli compute list' to follow its state")
		return nil
	},
}

var computeTerminateCmd = &cobra.Command{
	Use:   "terminate INSTANCE_ID",
	Short: "Terminate an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.compute(cmd.Context())
		if err != nil {
			return err
		}

		color.Cyan("Terminating %s...", args[0])
		change, err := m.Terminate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printStateChange(change)
		return nil
	},
}

func printStateChange(c compute.StateChange) {
	color.Green("✓ %s: %s → %s", c.InstanceID, c.Previous, c.Current)
}

// printBulk reports a StopAll/StartAll result. An error is reported after the
// changes that did go through.
func printBulk(result compute.BulkResult, err error) error {
	if result.Outcome == compute.NoInstances && err == nil {
		color.Yellow("⚠ No owned instances to act on")
		return nil
	}
	for _, c := range result.Changes {
		printStateChange(c)
	}
	if err != nil {
		return err
	}
	color.Green("✓ %d instance(s) updated", len(result.Changes))
	return nil
}

func init() {
	computeCreateCmd.Flags().StringP("type", "t", "", "instance type (default "+catalog.DefaultInstanceType+")")
	computeCreateCmd.Flags().StringP("image", "i", "", "image name or id (default "+catalog.DefaultImage+")")

	computeCmd.AddCommand(
		computeCreateCmd,
		computeListCmd,
		computeStartCmd,
		computeStartAllCmd,
		computeStopCmd,
		computeStopAllCmd,
		computeTerminateCmd,
	)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
