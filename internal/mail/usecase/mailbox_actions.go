package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"github.com/emersion/go-message/mail"
)

// MailboxActions performs the provider side effects requested by enrichment.
type MailboxActions struct {
	credentials CredentialProvider
	provider    MailboxProvider
}

func NewMailboxActions(credentials CredentialProvider, provider MailboxProvider) *MailboxActions {
	return &MailboxActions{credentials: credentials, provider: provider}
}

// ApplyLabel tags a message with a user label, creating the label if needed.
func (m *MailboxActions) ApplyLabel(ctx context.Context, accountID, messageID, label string) error {
	token, err := m.credentials.ActiveToken(ctx, accountID)
	if err != nil {
		return err
	}
	return m.provider.ApplyLabel(ctx, token, messageID, label)
}

// CreateReplyDraft stores body as a draft reply in the thread of doc and returns the draft id.
func (m *MailboxActions) CreateReplyDraft(ctx context.Context, doc maildomain.NormalizedDocument, body string) (string, error) {
	raw, err := BuildReplyMessage(doc, body, time.Now())
	if err != nil {
		return "", err
	}

	token, err := m.credentials.ActiveToken(ctx, doc.AccountID)
	if err != nil {
		return "", err
	}
	return m.provider.CreateDraft(ctx, token, doc.ThreadID, raw)
}

// BuildReplyMessage renders an RFC 822 reply to doc.
func BuildReplyMessage(doc maildomain.NormalizedDocument, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(replySubject(doc.Subject))

	if addr, err := mail.ParseAddress(doc.SentBy); err == nil {
		h.SetAddressList("To", []*mail.Address{addr})
	} else if doc.SentBy != "" {
		h.Set("To", doc.SentBy)
	}
	if doc.InternetMessageID != "" {
		h.Set("In-Reply-To", doc.InternetMessageID)
		h.Set("References", doc.InternetMessageID)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create draft writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("write draft body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close draft writer: %w", err)
	}
	return buf.Bytes(), nil
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	if subject == "" {
		return "Re:"
	}
	return "Re: " + subject
}
