package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/homedash/internal/device"
)

var (
	flagDiscoverTimeout time.Duration
	flagDiscoverJSON    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan the local network for lights",
	Long: `Broadcasts a discovery request, waits for replies, then reads each light's
current properties. Lights listed in the config file are included even if
they do not answer.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&flagDiscoverTimeout, "timeout", 0, "How long to wait for replies (default: lights.discovery_timeout)")
	discoverCmd.Flags().BoolVar(&flagDiscoverJSON, "json", false, "Print devices as JSON")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := buildRegistry(cfg.Lights, log)
	if err != nil {
		return err
	}
	defer reg.Close() //nolint:errcheck // best-effort on exit

	timeout := flagDiscoverTimeout
	if timeout <= 0 {
		timeout = cfg.Lights.DiscoveryTimeout
	}
	if _, err := reg.Discover(cmd.Context(), timeout); err != nil {
		return fmt.Errorf("discovering lights: %w", err)
	}

	devices := reg.GetAll()
	if flagDiscoverJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}
	return printDevices(cmd.OutOrStdout(), devices)
}

// printDevices writes one aligned row per device.
func printDevices(w io.Writer, devices []device.Device) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROOM\tSTATE\tPOWER\tBRIGHTNESS")
	for _, d := range devices {
		power := "off"
		if d.Power {
			power = "on"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d%%\n", d.ID, d.Name, d.Room, d.State, power, d.Brightness)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing device table: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "no lights found")
	}
	return nil
}
