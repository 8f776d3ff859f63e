package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/account/repository"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticCredentials struct {
	err error
}

func (s staticCredentials) ActiveToken(ctx context.Context, accountID string) (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: "tok-" + accountID}, nil
}

type fakeWatchProvider struct {
	historyID  uint64
	expiration time.Time
	failFor    string
	watched    []string
	stopped    int
}

func (f *fakeWatchProvider) Watch(ctx context.Context, token *oauth2.Token, topicName string, labelIDs []string) (*maildomain.WatchResult, error) {
	if token.AccessToken == "tok-"+f.failFor {
		return nil, errors.New("watch rejected")
	}
	f.watched = append(f.watched, topicName)
	return &maildomain.WatchResult{HistoryID: f.historyID, Expiration: f.expiration}, nil
}

func (f *fakeWatchProvider) Stop(ctx context.Context, token *oauth2.Token) error {
	f.stopped++
	return nil
}

func newUsecase(t *testing.T, provider *fakeWatchProvider) (*WatchUsecase, repository.AccountRepository) {
	t.Helper()
	db := testutil.NewDB(t, &accountdomain.Account{})
	accounts := repository.NewAccountRepository(db)
	return NewWatchUsecase(accounts, staticCredentials{}, provider, "projects/p/topics/new_mail"), accounts
}

func createAccount(t *testing.T, accounts repository.AccountRepository, email string, lastHistoryID uint64) *accountdomain.Account {
	t.Helper()
	acc := &accountdomain.Account{Email: email, LastHistoryID: lastHistoryID}
	require.NoError(t, accounts.Create(context.Background(), acc))
	return acc
}

func TestStart_SeedsCursorAndExpiration(t *testing.T) {
	exp := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
	provider := &fakeWatchProvider{historyID: 777, expiration: exp}
	uc, accounts := newUsecase(t, provider)
	ctx := context.Background()
	acc := createAccount(t, accounts, "a@example.com", 0)

	res, err := uc.Start(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), res.HistoryID)
	assert.Equal(t, []string{"projects/p/topics/new_mail"}, provider.watched)

	stored, err := accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), stored.LastHistoryID)
	require.NotNil(t, stored.WatchExpiration)
	assert.True(t, exp.Equal(*stored.WatchExpiration))
}

func TestStart_KeepsNewerCursor(t *testing.T) {
	provider := &fakeWatchProvider{historyID: 100, expiration: time.Now().Add(time.Hour)}
	uc, accounts := newUsecase(t, provider)
	ctx := context.Background()
	acc := createAccount(t, accounts, "a@example.com", 900)

	_, err := uc.Start(ctx, acc.ID)
	require.NoError(t, err)

	stored, err := accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), stored.LastHistoryID)
}

func TestStartStop_UnknownAccount(t *testing.T) {
	uc, _ := newUsecase(t, &fakeWatchProvider{})

	_, err := uc.Start(context.Background(), "missing")
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
	assert.ErrorIs(t, uc.Stop(context.Background(), "missing"), accountdomain.ErrAccountNotFound)
}

func TestStart_CredentialFailure(t *testing.T) {
	db := testutil.NewDB(t, &accountdomain.Account{})
	accounts := repository.NewAccountRepository(db)
	provider := &fakeWatchProvider{}
	uc := NewWatchUsecase(accounts, staticCredentials{err: accountdomain.ErrAuth}, provider, "topic")
	acc := createAccount(t, accounts, "a@example.com", 0)

	_, err := uc.Start(context.Background(), acc.ID)
	assert.ErrorIs(t, err, accountdomain.ErrAuth)
	assert.Empty(t, provider.watched)
}

func TestStop_ClearsExpiration(t *testing.T) {
	provider := &fakeWatchProvider{historyID: 1, expiration: time.Now().Add(time.Hour)}
	uc, accounts := newUsecase(t, provider)
	ctx := context.Background()
	acc := createAccount(t, accounts, "a@example.com", 0)

	_, err := uc.Start(ctx, acc.ID)
	require.NoError(t, err)
	require.NoError(t, uc.Stop(ctx, acc.ID))

	stored, err := accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.WatchExpiration)
	assert.Equal(t, 1, provider.stopped)
}

func TestRenewExpiring(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	provider := &fakeWatchProvider{historyID: 1, expiration: now.Add(7 * 24 * time.Hour)}
	uc, accounts := newUsecase(t, provider)
	ctx := context.Background()

	soon := createAccount(t, accounts, "soon@example.com", 0)
	later := createAccount(t, accounts, "later@example.com", 0)
	broken := createAccount(t, accounts, "broken@example.com", 0)
	createAccount(t, accounts, "unwatched@example.com", 0)

	soonExp := now.Add(2 * time.Hour)
	laterExp := now.Add(72 * time.Hour)
	require.NoError(t, accounts.SetWatchExpiration(ctx, soon.ID, &soonExp))
	require.NoError(t, accounts.SetWatchExpiration(ctx, later.ID, &laterExp))
	require.NoError(t, accounts.SetWatchExpiration(ctx, broken.ID, &soonExp))
	provider.failFor = broken.ID

	renewed, err := uc.RenewExpiring(ctx, now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed)

	stored, err := accounts.FindByID(ctx, soon.ID)
	require.NoError(t, err)
	assert.True(t, provider.expiration.Equal(*stored.WatchExpiration))

	stored, err = accounts.FindByID(ctx, later.ID)
	require.NoError(t, err)
	assert.True(t, laterExp.Equal(*stored.WatchExpiration), "watch outside the window is untouched")
}
