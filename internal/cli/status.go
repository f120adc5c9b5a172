package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/compute"
)

var computeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"status"},
	Short:   "List owned instances",
	Long:    `Display every instance tagged with the current owner and its live state.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.compute(cmd.Context())
		if err != nil {
			return err
		}

		if idsOnly, _ := cmd.Flags().GetBool("ids"); idsOnly {
			ids, err := m.ListOwned(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		}

		instances, err := m.Describe(cmd.Context())
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			color.Yellow("⚠ No instances owned by %s", s.id.Owner())
			return nil
		}

		rows := make([][]string, 0, len(instances))
		for _, inst := range instances {
			rows = append(rows, []string{
				inst.ID,
				inst.Type,
				inst.ImageID,
				instanceStateText(inst.State),
				formatLaunch(inst.LaunchTime),
			})
		}
		printTable(os.Stdout, []string{"id", "type", "image", "state", "launched"}, rows)
		return nil
	},
}

func instanceStateText(state compute.InstanceState) string {
	switch state {
	case compute.StateRunning:
		return color.GreenString("✓ %s", state)
	case compute.StateStopped, compute.StateTerminated:
		return color.RedString("✗ %s", state)
	case compute.StatePending, compute.StateStopping, compute.StateShuttingDown:
		return color.YellowString("⚠ %s", state)
	default:
		return color.RedString("✗ %s", state)
	}
}

func formatLaunch(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	computeListCmd.Flags().Bool("ids", false, "print instance ids only")
}
