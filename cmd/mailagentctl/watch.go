package main

import (
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage mailbox push watches",
}

var watchStartCmd = &cobra.Command{
	Use:   "start <account-id>",
	Short: "Start or restart the push watch for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Watch.Start(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Printf("Watch started. History id: %d, expires: %s\n", res.HistoryID, res.Expiration.Format(time.RFC3339))
		return nil
	},
}

var watchStopCmd = &cobra.Command{
	Use:   "stop <account-id>",
	Short: "Stop the push watch for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.Watch.Stop(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println("Watch stopped.")
		return nil
	},
}

var renewWithin time.Duration

var watchRenewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Renew every watch that expires soon",
	RunE: func(cmd *cobra.Command, args []string) error {
		within := renewWithin
		if within <= 0 {
			within = svc.Policy.WatchRenewBefore
		}
		renewed, err := svc.Watch.RenewExpiring(cmd.Context(), time.Now(), within)
		if err != nil {
			return err
		}
		cmd.Printf("Renewed %d watches.\n", renewed)
		return nil
	},
}

func init() {
	watchRenewCmd.Flags().DurationVar(&renewWithin, "within", 0, "renew watches expiring within this window (default: policy watch_renew_before)")
	watchCmd.AddCommand(watchStartCmd, watchStopCmd, watchRenewCmd)
	rootCmd.AddCommand(watchCmd)
}
