package main

import (
	"fmt"
	"strings"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/account/usecase"
	"github.com/Alok-Gaur/mail-management-agent/pkg/config"

	"github.com/spf13/cobra"
)

var (
	accountName  string
	accountRole  string
	refreshToken string
	labelNames   []string

	tokenSubject string
	tokenTTL     time.Duration
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage connected mailboxes",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Connect a mailbox with an already granted refresh token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if refreshToken == "" {
			return fmt.Errorf("--refresh-token is required")
		}
		ctx := cmd.Context()
		account, err := svc.Directory.Register(ctx, usecase.RegisterRequest{
			Email:        args[0],
			Name:         accountName,
			Role:         accountRole,
			RefreshToken: refreshToken,
		})
		if err != nil {
			return err
		}
		if len(labelNames) > 0 {
			labels := make([]accountdomain.Label, 0, len(labelNames))
			for _, name := range labelNames {
				labels = append(labels, accountdomain.Label{Name: strings.TrimSpace(name)})
			}
			if err := svc.Directory.SetLabels(ctx, account.ID, labels); err != nil {
				return fmt.Errorf("account created but labels were not saved: %w", err)
			}
		}
		cmd.Printf("Account %s created for %s.\n", account.ID, account.Email)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:         "token",
	Short:       "Issue an operator bearer token for the HTTP API",
	Annotations: map[string]string{"standalone": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := usecase.NewOperatorTokens(config.Load().SecretKey).Issue(tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		cmd.Println(tok)
		return nil
	},
}

func init() {
	accountAddCmd.Flags().StringVar(&accountName, "name", "", "display name")
	accountAddCmd.Flags().StringVar(&accountRole, "role", "", "account role, e.g. owner or student")
	accountAddCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token for the mailbox")
	accountAddCmd.Flags().StringSliceVar(&labelNames, "labels", nil, "classification labels, comma separated")
	accountCmd.AddCommand(accountAddCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(accountCmd, tokenCmd)
}
