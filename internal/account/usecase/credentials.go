package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	"github.com/Alok-Gaur/mail-management-agent/pkg/utils/crypto"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenUpdateFunc persists a token the provider handed back after a refresh.
type TokenUpdateFunc func(token *oauth2.Token) error

// TokenStore is the slice of the account repository the credential provider needs.
type TokenStore interface {
	FindByID(ctx context.Context, id string) (*accountdomain.Account, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Credentials] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// Credentials hands out access tokens for stored accounts, refreshing
// expired ones and writing the refreshed token back sealed.
type Credentials struct {
	store         TokenStore
	oauthConfig   *oauth2.Config
	encryptionKey string
}

func NewCredentials(store TokenStore, clientID, clientSecret, encryptionKey string) *Credentials {
	return &Credentials{
		store: store,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		encryptionKey: encryptionKey,
	}
}

// ActiveToken returns a valid token for accountID. Every failure wraps ErrAuth.
func (c *Credentials) ActiveToken(ctx context.Context, accountID string) (*oauth2.Token, error) {
	account, err := c.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: load account %s: %v", accountdomain.ErrAuth, accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %w: %s", accountdomain.ErrAuth, accountdomain.ErrAccountNotFound, accountID)
	}

	accessToken, err := crypto.Decrypt(account.AccessToken, c.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: access token for %s: %v", accountdomain.ErrAuth, accountID, err)
	}
	refreshToken, err := crypto.Decrypt(account.RefreshToken, c.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token for %s: %v", accountdomain.ErrAuth, accountID, err)
	}
	if accessToken == "" && refreshToken == "" {
		return nil, fmt.Errorf("%w: no stored tokens for %s", accountdomain.ErrAuth, accountID)
	}

	current := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       account.TokenExpiry,
	}
	if accessToken == "" {
		// Force a refresh.
		current.Expiry = time.Now().Add(-time.Minute)
	}

	src := &notifyTokenSource{
		src:     c.oauthConfig.TokenSource(ctx, current),
		current: current,
		callback: func(t *oauth2.Token) error {
			return c.persist(context.WithoutCancel(ctx), accountID, t)
		},
	}

	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token for %s: %v", accountdomain.ErrAuth, accountID, err)
	}
	return token, nil
}

// StoreTokens seals and saves tokens obtained outside this service.
func (c *Credentials) StoreTokens(ctx context.Context, accountID string, token *oauth2.Token) error {
	return c.persist(ctx, accountID, token)
}

func (c *Credentials) persist(ctx context.Context, accountID string, t *oauth2.Token) error {
	access, err := crypto.Encrypt(t.AccessToken, c.encryptionKey)
	if err != nil {
		return err
	}
	refresh, err := crypto.Encrypt(t.RefreshToken, c.encryptionKey)
	if err != nil {
		return err
	}
	return c.store.UpdateTokens(ctx, accountID, access, refresh, t.Expiry)
}
