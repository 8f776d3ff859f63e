package usecase

import (
	"context"
	"errors"
	"testing"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	provider := &fakeProvider{changes: &maildomain.HistoryChanges{
		Records:         4,
		AddedMessageIDs: []string{"m2", "m1", "m2"},
	}}
	creds := &fakeCredentials{}
	r := NewResolver(creds, provider)

	ids, err := r.Resolve(context.Background(), "acc-1", 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1", "m2"}, ids, "provider order and duplicates are preserved")
	assert.Equal(t, []uint64{500}, provider.listCursors)
	assert.Equal(t, []string{"acc-1"}, creds.calls)
}

func TestResolver_HistoryWithoutAdditions(t *testing.T) {
	provider := &fakeProvider{changes: &maildomain.HistoryChanges{Records: 2}}
	ids, err := NewResolver(&fakeCredentials{}, provider).Resolve(context.Background(), "acc-1", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResolver_Errors(t *testing.T) {
	tests := []struct {
		name     string
		creds    *fakeCredentials
		provider *fakeProvider
		want     error
	}{
		{"no history records", &fakeCredentials{}, &fakeProvider{changes: &maildomain.HistoryChanges{}}, maildomain.ErrEmptyHistory},
		{"nil changes", &fakeCredentials{}, &fakeProvider{}, maildomain.ErrEmptyHistory},
		{"expired cursor", &fakeCredentials{}, &fakeProvider{historyErr: maildomain.ErrHistoryExpired}, maildomain.ErrEmptyHistory},
		{"transport failure", &fakeCredentials{}, &fakeProvider{historyErr: errors.New("connection reset")}, maildomain.ErrUpstream},
		{"auth failure", &fakeCredentials{err: errNoToken}, &fakeProvider{}, maildomain.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := NewResolver(tt.creds, tt.provider).Resolve(context.Background(), "acc-1", 10)
			assert.Nil(t, ids)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolver_AuthFailureKeepsCause(t *testing.T) {
	_, err := NewResolver(&fakeCredentials{err: errNoToken}, &fakeProvider{}).Resolve(context.Background(), "acc-1", 10)
	assert.ErrorIs(t, err, errNoToken)
}
