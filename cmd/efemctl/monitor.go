package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-efem/efemlink"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch controller status and events until interrupted",
	Long: `Open the link with a periodic background GetStatus poll and print
link state changes and unsolicited events until Ctrl-C or disconnect.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 5*time.Second,
		"status poll interval (100ms to 5m)")

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	prompter := &consolePrompter{}

	conn, err := openLink(ctx, prompter, efemlink.WithStatusPollInterval(monitorInterval))
	if err != nil {
		return err
	}
	defer conn.Close()

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	return nil
}
