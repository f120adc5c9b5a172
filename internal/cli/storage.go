package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/storage"
)

var storageCmd = &cobra.Command{
	Use:     "storage",
	Aliases: []string{"s3"},
	Short:   "Manage owned buckets and upload objects",
}

var storageCreateCmd = &cobra.Command{
	Use:   "create BUCKET",
	Short: "Create a bucket tagged with the owner",
	Long: `Create a bucket and tag it Owner=<owner> and CreatedBy=platform-cli.

If tagging fails the bucket is removed again, so an untagged bucket is never
left behind silently.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.storage(cmd.Context())
		if err != nil {
			return err
		}

		color.Cyan("Creating bucket %s in %s...", args[0], s.id.Region())
		if err := m.CreateBucket(cmd.Context(), args[0]); err != nil {
			var partial *storage.PartialCreateError
			if errors.As(err, &partial) {
				color.Yellow("⚠ Bucket %s exists but is untagged; remove it manually", partial.Bucket)
			}
			return err
		}

		color.Green("✓ Bucket %s created", args[0])
		return nil
	},
}

var storageUploadCmd = &cobra.Command{
	Use:   "upload BUCKET FILE",
	Short: "Upload a local file into a bucket",
	Long: `Upload FILE into BUCKET. The object key defaults to the file's base name.
The object carries the ownership tags.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.storage(cmd.Context())
		if err != nil {
			return err
		}

		key, _ := cmd.Flags().GetString("key")
		color.Cyan("Uploading %s to %s...", args[1], args[0])
		res, err := m.Upload(cmd.Context(), args[0], args[1], key)
		if err != nil {
			return err
		}

		color.Green("✓ Uploaded s3://%s/%s", res.Bucket, res.Key)
		if res.Location != "" {
			fmt.Printf("  %s\n", res.Location)
		}
		return nil
	},
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets owned by the current owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.storage(cmd.Context())
		if err != nil {
			return err
		}

		buckets, err := m.ListOwned(cmd.Context())
		if err != nil {
			return err
		}
		if len(buckets) == 0 {
			color.Yellow("⚠ No buckets owned by %s", s.id.Owner())
			return nil
		}
		for _, b := range buckets {
			fmt.Println(b)
		}
		return nil
	},
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete BUCKET",
	Short: "Empty and delete an owned bucket",
	Long: `Delete every object in BUCKET, then the bucket itself.
Buckets not carrying the ownership tags are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		m, err := s.storage(cmd.Context())
		if err != nil {
			return err
		}

		color.Cyan("Deleting bucket %s...", args[0])
		n, err := m.DeleteBucket(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		color.Green("✓ Bucket %s deleted (%d object(s) removed)", args[0], n)
		return nil
	},
}

func init() {
	storageUploadCmd.Flags().StringP("key", "k", "", "object key (default: file base name)")

	storageCmd.AddCommand(
		storageCreateCmd,
		storageUploadCmd,
		storageListCmd,
		storageDeleteCmd,
	)
}
