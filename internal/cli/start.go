package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var computeStartCmd = &cobra.Command{
	Use:   "start INSTANCE_ID",
	Short: "Start a stopped instance",
	Long: `Request a start of one instance.

The request is asynchronous: the instance moves to pending and then running.
Starting an instance that is not stopped is rejected by the provider.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.compute(cmd.Context())
		if err != nil {
			return err
		}

		color.Cyan("Starting %s...", args[0])
		change, err := m.Start(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printStateChange(change)
		return nil
	},
}

var computeStartAllCmd = &cobra.Command{
	Use:   "start-all",
	Short: "Start every owned instance",
	Long: `Start every instance tagged with the current owner, one at a time.

Terminated and shutting-down instances are skipped. The first failure stops
the sweep; instances already started stay started.`,
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

		color.Cyan("Starting all instances owned by %s...", s.id.Owner())
		return printBulk(m.StartAll(cmd.Context()))
	},
}
