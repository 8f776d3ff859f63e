package usecase

import (
	"context"
	"errors"
	"fmt"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
)

// Resolver lists the message ids added to a mailbox since a change cursor.
type Resolver struct {
	credentials CredentialProvider
	provider    Provider
}

func NewResolver(credentials CredentialProvider, provider Provider) *Resolver {
	return &Resolver{credentials: credentials, provider: provider}
}

// Resolve returns added message ids in provider order. Duplicates are kept.
// ErrEmptyHistory is returned when the provider has nothing for the cursor.
func (r *Resolver) Resolve(ctx context.Context, accountID string, cursor uint64) ([]string, error) {
	token, err := r.credentials.ActiveToken(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", maildomain.ErrUpstream, err)
	}

	changes, err := r.provider.ListHistory(ctx, token, cursor)
	if err != nil {
		if errors.Is(err, maildomain.ErrHistoryExpired) {
			return nil, fmt.Errorf("%w: cursor %d: %w", maildomain.ErrEmptyHistory, cursor, err)
		}
		return nil, fmt.Errorf("%w: list history: %w", maildomain.ErrUpstream, err)
	}
	if changes == nil || changes.Records == 0 {
		return nil, fmt.Errorf("%w: cursor %d", maildomain.ErrEmptyHistory, cursor)
	}

	return changes.AddedMessageIDs, nil
}
