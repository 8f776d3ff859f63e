package usecase

import (
	"context"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"golang.org/x/oauth2"
)

// CredentialProvider hands out a usable access token for an account,
// refreshing it when needed. Failures are reported as account ErrAuth.
type CredentialProvider interface {
	ActiveToken(ctx context.Context, accountID string) (*oauth2.Token, error)
}

// Provider is the mail provider surface the ingestion core depends on.
type Provider interface {
	ListHistory(ctx context.Context, token *oauth2.Token, startCursor uint64) (*maildomain.HistoryChanges, error)
	GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*maildomain.RawMessage, error)
}

// MailboxProvider adds the side-effecting calls used outside resolution.
type MailboxProvider interface {
	Provider
	Watch(ctx context.Context, token *oauth2.Token, topicName string, labelIDs []string) (*maildomain.WatchResult, error)
	Stop(ctx context.Context, token *oauth2.Token) error
	ApplyLabel(ctx context.Context, token *oauth2.Token, messageID, labelName string) error
	CreateDraft(ctx context.Context, token *oauth2.Token, threadID string, raw []byte) (string, error)
}
