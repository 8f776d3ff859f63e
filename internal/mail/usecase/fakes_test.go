package usecase

import (
	"context"
	"encoding/base64"
	"errors"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"golang.org/x/oauth2"
)

var errNoToken = errors.New("no token for account")

type fakeCredentials struct {
	err   error
	calls []string
}

func (f *fakeCredentials) ActiveToken(ctx context.Context, accountID string) (*oauth2.Token, error) {
	_ = ctx
	f.calls = append(f.calls, accountID)
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "tok-" + accountID}, nil
}

type fakeProvider struct {
	changes     *maildomain.HistoryChanges
	historyErr  error
	messages    map[string]*maildomain.RawMessage
	messageErr  error
	listCursors []uint64
	labels      map[string]string
	drafts      [][]byte
}

func (f *fakeProvider) ListHistory(ctx context.Context, token *oauth2.Token, startCursor uint64) (*maildomain.HistoryChanges, error) {
	_ = ctx
	_ = token
	f.listCursors = append(f.listCursors, startCursor)
	return f.changes, f.historyErr
}

func (f *fakeProvider) GetMessage(ctx context.Context, token *oauth2.Token, messageID string) (*maildomain.RawMessage, error) {
	_ = ctx
	_ = token
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	return f.messages[messageID], nil
}

func (f *fakeProvider) Watch(ctx context.Context, token *oauth2.Token, topicName string, labelIDs []string) (*maildomain.WatchResult, error) {
	return &maildomain.WatchResult{}, nil
}

func (f *fakeProvider) Stop(ctx context.Context, token *oauth2.Token) error {
	return nil
}

func (f *fakeProvider) ApplyLabel(ctx context.Context, token *oauth2.Token, messageID, labelName string) error {
	if f.labels == nil {
		f.labels = map[string]string{}
	}
	f.labels[messageID] = labelName
	return nil
}

func (f *fakeProvider) CreateDraft(ctx context.Context, token *oauth2.Token, threadID string, raw []byte) (string, error) {
	f.drafts = append(f.drafts, raw)
	return "draft-1", nil
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}
