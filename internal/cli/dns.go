package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/platform-cli/internal/dns"
)

var dnsCmd = &cobra.Command{
	Use:     "dns",
	Aliases: []string{"route53"},
	Short:   "Manage owned hosted zones and their records",
	Long: `Manage hosted zones created by platform-cli and the records inside them.

Record commands operate on the zone given by --zone-id, as printed by
'dns create-zone' and 'dns list-zones'. Record changes are accepted by the
provider asynchronously; the printed status is normally PENDING.`,
}

var dnsCreateZoneCmd = &cobra.Command{
	Use:   "create-zone DOMAIN",
	Short: "Create a hosted zone tagged with the owner",
	Long: `Create a public hosted zone for DOMAIN and tag it with the ownership tags.

Every call creates a new zone, even for a domain that already has one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		api, err := s.dns(cmd.Context())
		if err != nil {
			return err
		}

		color.Cyan("Creating hosted zone %s...", args[0])
		m, err := dns.CreateZone(cmd.Context(), s.id, api, args[0], s.log.WithName("dns"))
		if err != nil {
			return err
		}

		zone := m.Zone()
		color.Green("✓ Hosted zone %s created", zone.Name)
		fmt.Printf("  Zone ID: %s\n", dns.ShortZoneID(zone.ID))
		if len(zone.NameServers) > 0 {
			fmt.Println("  Name servers:")
			for _, ns := range zone.NameServers {
				fmt.Printf("    %s\n", ns)
			}
		}
		return nil
	},
}

var dnsListZonesCmd = &cobra.Command{
	Use:   "list-zones",
	Short: "List hosted zones owned by the current owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		api, err := s.dns(cmd.Context())
		if err != nil {
			return err
		}

		zones, err := dns.ListOwnedZones(cmd.Context(), s.id, api, s.log.WithName("dns"))
		if err != nil {
			return err
		}
		if len(zones) == 0 {
			color.Yellow("⚠ No hosted zones owned by %s", s.id.Owner())
			return nil
		}
		rows := make([][]string, 0, len(zones))
		for _, z := range zones {
			rows = append(rows, []string{dns.ShortZoneID(z.ID), z.Name})
		}
		printTable(os.Stdout, []string{"zone id", "name"}, rows)
		return nil
	},
}

var dnsDeleteZoneCmd = &cobra.Command{
	Use:   "delete-zone",
	Short: "Delete an owned hosted zone and all its records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := attachZone(cmd)
		if err != nil {
			return err
		}

		color.Cyan("Deleting hosted zone %s...", m.Zone().ID)
		if err := m.DeleteZone(cmd.Context()); err != nil {
			return err
		}
		color.Green("✓ Hosted zone %s deleted", m.Zone().ID)
		return nil
	},
}

var dnsCreateRecordCmd = &cobra.Command{
	Use:   "create-record",
	Short: "Create a record in a hosted zone",
	Long: `Create a record. Creating a record whose name and type already exist
fails; use update-record to change it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := attachZone(cmd)
		if err != nil {
			return err
		}

		rec := dns.Record{
			Name:   stringFlag(cmd, "name"),
			Type:   recordType(cmd),
			Values: stringsFlag(cmd, "value"),
		}
		if ttl, ok, err := ttlFlag(cmd); err != nil {
			return err
		} else if ok {
			rec.TTL = ttl
		}

		color.Cyan("Creating %s record %s...", orDefault(rec.Type, dns.DefaultType), dns.FQDN(rec.Name))
		change, err := m.CreateRecord(cmd.Context(), rec)
		if err != nil {
			return err
		}
		printChange(change)
		return nil
	},
}

var dnsUpdateRecordCmd = &cobra.Command{
	Use:   "update-record",
	Short: "Change the value or TTL of a record",
	Long: `Replace a record's values and/or TTL. Whatever is not given is read back
from the current record first. At least one of --value or --ttl is required.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		upd := dns.Update{Values: stringsFlag(cmd, "value")}
		ttl, ok, err := ttlFlag(cmd)
		if err != nil {
			return err
		}
		if ok {
			upd.TTL = &ttl
		}
		if len(upd.Values) == 0 && upd.TTL == nil {
			return dns.ErrNothingToUpdate
		}

		m, err := attachZone(cmd)
		if err != nil {
			return err
		}

		name := stringFlag(cmd, "name")
		color.Cyan("Updating %s record %s...", orDefault(recordType(cmd), dns.DefaultType), dns.FQDN(name))
		change, err := m.UpdateRecord(cmd.Context(), name, recordType(cmd), upd)
		if err != nil {
			return err
		}
		printChange(change)
		return nil
	},
}

var dnsDeleteRecordCmd = &cobra.Command{
	Use:   "delete-record",
	Short: "Delete a record from a hosted zone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := attachZone(cmd)
		if err != nil {
			return err
		}

		name := stringFlag(cmd, "name")
		color.Cyan("Deleting %s record %s...", orDefault(recordType(cmd), dns.DefaultType), dns.FQDN(name))
		change, err := m.DeleteRecord(cmd.Context(), name, recordType(cmd))
		if err != nil {
			return err
		}
		printChange(change)
		return nil
	},
}

var dnsGetRecordCmd = &cobra.Command{
	Use:   "get-record",
	Short: "Show the current value of a record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := attachZone(cmd)
		if err != nil {
			return err
		}

		rec, err := m.GetRecord(cmd.Context(), stringFlag(cmd, "name"), recordType(cmd))
		if err != nil {
			return err
		}
		printTable(os.Stdout, recordHeader, [][]string{recordRow(*rec)})
		return nil
	},
}

var dnsListRecordsCmd = &cobra.Command{
	Use:   "list-records",
	Short: "List every record in a hosted zone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := attachZone(cmd)
		if err != nil {
			return err
		}

		records, err := m.ListRecords(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, recordRow(r))
		}
		printTable(os.Stdout, recordHeader, rows)
		return nil
	},
}

var recordHeader = []string{"name", "type", "ttl", "values"}

func recordRow(r dns.Record) []string {
	return []string{r.Name, r.Type, strconv.FormatInt(r.TTL, 10), strings.Join(r.Values, ",")}
}

func printChange(c *dns.Change) {
	color.Green("✓ Change %s submitted (%s)", c.ID, c.Status)
}

func attachZone(cmd *cobra.Command) (*dns.Manager, error) {
	zoneID := stringFlag(cmd, "zone-id")
	if zoneID == "" {
		return nil, fmt.Errorf("--zone-id is required")
	}
	s, err := newSession()
	if err != nil {
		return nil, err
	}
	api, err := s.dns(cmd.Context())
	if err != nil {
		return nil, err
	}
	return dns.Attach(s.id, api, zoneID, s.log.WithName("dns")), nil
}

// ttlFlag returns the --ttl value and whether it was given.
func ttlFlag(cmd *cobra.Command) (int64, bool, error) {
	if !cmd.Flags().Changed("ttl") {
		return 0, false, nil
	}
	ttl, err := cmd.Flags().GetInt64("ttl")
	if err != nil {
		return 0, false, err
	}
	if ttl <= 0 {
		return 0, false, fmt.Errorf("invalid ttl %d: must be positive", ttl)
	}
	return ttl, true, nil
}

func recordType(cmd *cobra.Command) string {
	return strings.ToUpper(stringFlag(cmd, "type"))
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func stringsFlag(cmd *cobra.Command, name string) []string {
	v, _ := cmd.Flags().GetStringArray(name)
	return v
}

func init() {
	zoneCmds := []*cobra.Command{
		dnsDeleteZoneCmd,
		dnsCreateRecordCmd,
		dnsUpdateRecordCmd,
		dnsDeleteRecordCmd,
		dnsGetRecordCmd,
		dnsListRecordsCmd,
	}
	for _, c := range zoneCmds {
		c.Flags().String("zone-id", "", "hosted zone id, with or without the /hostedzone/ prefix")
		_ = c.MarkFlagRequired("zone-id")
	}

	recordCmds := []*cobra.Command{
		dnsCreateRecordCmd,
		dnsUpdateRecordCmd,
		dnsDeleteRecordCmd,
		dnsGetRecordCmd,
	}
	for _, c := range recordCmds {
		c.Flags().String("name", "", "record name, e.g. www.example.com")
		c.Flags().String("type", "", "record type (default A)")
		_ = c.MarkFlagRequired("name")
	}

	for _, c := range []*cobra.Command{dnsCreateRecordCmd, dnsUpdateRecordCmd} {
		c.Flags().StringArray("value", nil, "record value; repeat for several")
		c.Flags().Int64("ttl", dns.DefaultTTL, "time to live in seconds")
	}
	_ = dnsCreateRecordCmd.MarkFlagRequired("value")

	dnsCmd.AddCommand(
		dnsCreateZoneCmd,
		dnsListZonesCmd,
		dnsDeleteZoneCmd,
		dnsCreateRecordCmd,
		dnsUpdateRecordCmd,
		dnsDeleteRecordCmd,
		dnsGetRecordCmd,
		dnsListRecordsCmd,
	)
}
