// cmd/bkmonitor/scan.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamzrod/battery-monitor/internal/transport/ble"
)

var (
	cmdScan = &cobra.Command{
		Use:   "scan",
		Short: "List nearby battery monitors",
		Long:  ``,
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
)

var scanDuration time.Duration

func init() {
	rootCmd.AddCommand(cmdScan)
	cmdScan.Flags().DurationVarP(&scanDuration, "duration", "t", 10*time.Second, "How long to scan")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	found, err := ble.Discover(ctx, scanDuration)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no supported devices found")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tRSSI")
	for _, d := range found {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.Address, d.Name, d.RSSI)
	}
	return tw.Flush()
}
