package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var pollCmd = &cobra.Command{
	Use:   "poll <account-id> [history-id]",
	Short: "Process new mail for an account now",
	Long: `Runs one batch for the account synchronously and prints its summary.
Without a history id the account's last recorded cursor is used.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	var cursor uint64
	if len(args) == 2 {
		parsed, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid history id %q: %w", args[1], err)
		}
		cursor = parsed
	}

	summary, err := svc.Orchestrator.Poll(cmd.Context(), args[0], cursor)
	if summary != nil {
		out, _ := json.MarshalIndent(summary, "", "  ")
		cmd.Println(string(out))
	}
	return err
}
