// cmd/bkmonitor/commands.go
package main

import "github.com/spf13/cobra"

var (
	rootCmd = &cobra.Command{
		Use:           "bkmonitor",
		Short:         "Battery monitor poller.",
		Long:          `Polls BLE battery monitors and republishes their status as Modbus registers and Prometheus metrics.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

func Execute() error {
	return rootCmd.Execute()
}
