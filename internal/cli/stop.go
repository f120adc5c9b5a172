package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var computeStopCmd = &cobra.Command{
	Use:   "stop INSTANCE_ID",
	Short: "Stop a running instance",
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

		color.Cyan("Stopping %s...", args[0])
		change, err := m.Stop(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printStateChange(change)
		return nil
	},
}

var computeStopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every owned instance",
	Long: `Stop every instance tagged with the current owner, one at a time.

Terminated and shutting-down instances are skipped. The first failure stops
the sweep.`,
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

		color.Cyan("Stopping all instances owned by %s...", s.id.Owner())
		return printBulk(m.StopAll(cmd.Context()))
	},
}
