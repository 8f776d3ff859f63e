// Command mailagentctl runs operator tasks against the service database and mail provider.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Alok-Gaur/mail-management-agent/internal/app"
	"github.com/Alok-Gaur/mail-management-agent/pkg/config"

	"github.com/spf13/cobra"
)

var (
	svc *app.App

	rootCmd = &cobra.Command{
		Use:           "mailagentctl",
		Short:         "Operate the mail ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["standalone"] == "true" {
				return nil
			}
			a, err := app.New(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			svc = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if svc != nil {
				return svc.Close()
			}
			return nil
		},
	}
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
