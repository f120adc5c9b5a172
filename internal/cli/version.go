package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/identity"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("platform-cli version %s\n", cmd.Root().Version)
		fmt.Println("\nOwnership tags:")
		fmt.Printf("  %-10s <owner>\n", identity.OwnerTagKey)
		fmt.Printf("  %-10s %s\n", identity.CreatedByTagKey, identity.CreatedBy)
		fmt.Println("\nDefault region:")
		fmt.Printf("  %s\n", identity.DefaultRegion)
	},
}
