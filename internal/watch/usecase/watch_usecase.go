package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"golang.org/x/oauth2"
)

type AccountStore interface {
	FindByID(ctx context.Context, id string) (*accountdomain.Account, error)
	AdvanceCursor(ctx context.Context, id string, cursor uint64) (bool, error)
	SetWatchExpiration(ctx context.Context, id string, expiration *time.Time) error
	FindWatchesExpiringBefore(ctx context.Context, deadline time.Time) ([]accountdomain.Account, error)
}

type CredentialProvider interface {
	ActiveToken(ctx context.Context, accountID string) (*oauth2.Token, error)
}

type WatchProvider interface {
	Watch(ctx context.Context, token *oauth2.Token, topicName string, labelIDs []string) (*maildomain.WatchResult, error)
	Stop(ctx context.Context, token *oauth2.Token) error
}

// WatchUsecase starts, stops and renews provider push subscriptions for mailboxes.
type WatchUsecase struct {
	accounts    AccountStore
	credentials CredentialProvider
	provider    WatchProvider
	topicName   string
}

func NewWatchUsecase(accounts AccountStore, credentials CredentialProvider, provider WatchProvider, topicName string) *WatchUsecase {
	return &WatchUsecase{
		accounts:    accounts,
		credentials: credentials,
		provider:    provider,
		topicName:   topicName,
	}
}

// Start (re)establishes the watch. The returned history id seeds the cursor
// of an account that has none; a newer stored cursor is kept.
func (w *WatchUsecase) Start(ctx context.Context, accountID string) (*maildomain.WatchResult, error) {
	if err := w.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	token, err := w.credentials.ActiveToken(ctx, accountID)
	if err != nil {
		return nil, err
	}

	res, err := w.provider.Watch(ctx, token, w.topicName, nil)
	if err != nil {
		return nil, err
	}

	expiration := res.Expiration
	if err := w.accounts.SetWatchExpiration(ctx, accountID, &expiration); err != nil {
		return nil, fmt.Errorf("save watch expiration: %w", err)
	}
	if _, err := w.accounts.AdvanceCursor(ctx, accountID, res.HistoryID); err != nil {
		return nil, fmt.Errorf("seed history cursor: %w", err)
	}
	return res, nil
}

func (w *WatchUsecase) Stop(ctx context.Context, accountID string) error {
	if err := w.ensureAccount(ctx, accountID); err != nil {
		return err
	}
	token, err := w.credentials.ActiveToken(ctx, accountID)
	if err != nil {
		return err
	}
	if err := w.provider.Stop(ctx, token); err != nil {
		return err
	}
	return w.accounts.SetWatchExpiration(ctx, accountID, nil)
}

// RenewExpiring restarts every watch that expires before now+within.
// It returns how many were renewed; one failure does not stop the others.
func (w *WatchUsecase) RenewExpiring(ctx context.Context, now time.Time, within time.Duration) (int, error) {
	accounts, err := w.accounts.FindWatchesExpiringBefore(ctx, now.Add(within))
	if err != nil {
		return 0, err
	}

	renewed := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			return renewed, ctx.Err()
		}
		if _, err := w.Start(ctx, account.ID); err != nil {
			log.Printf("[Watch] Failed to renew watch for account %s: %v", account.ID, err)
			continue
		}
		renewed++
	}
	return renewed, nil
}

func (w *WatchUsecase) ensureAccount(ctx context.Context, accountID string) error {
	account, err := w.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: %s", accountdomain.ErrAccountNotFound, accountID)
	}
	return nil
}
