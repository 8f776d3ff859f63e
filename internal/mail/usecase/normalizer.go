package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Normalizer fetches one message and flattens it into a NormalizedDocument.
type Normalizer struct {
	credentials CredentialProvider
	provider    Provider
	now         func() time.Time
}

func NewNormalizer(credentials CredentialProvider, provider Provider) *Normalizer {
	return &Normalizer{credentials: credentials, provider: provider, now: time.Now}
}

func (n *Normalizer) Normalize(ctx context.Context, accountID string, cursor uint64, messageID string) (*maildomain.NormalizedDocument, error) {
	token, err := n.credentials.ActiveToken(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", maildomain.ErrFetch, messageID, err)
	}

	raw, err := n.provider.GetMessage(ctx, token, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", maildomain.ErrFetch, messageID, err)
	}
	if raw == nil || raw.Payload == nil {
		return nil, fmt.Errorf("%w: %s: %w: message has no payload", maildomain.ErrFetch, messageID, maildomain.ErrMalformedMessage)
	}

	body, err := extractBody(raw.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w: %w", maildomain.ErrFetch, messageID, maildomain.ErrMalformedMessage, err)
	}

	h := headerOf(raw.Payload.Headers)
	id := raw.ID
	if id == "" {
		id = messageID
	}

	return &maildomain.NormalizedDocument{
		MessageID:         id,
		AccountID:         accountID,
		HistoryCursor:     cursor,
		ThreadID:          raw.ThreadID,
		InternetMessageID: headerText(h, "Message-Id"),
		Subject:           headerText(h, "Subject"),
		Body:              body,
		SentBy:            headerText(h, "From"),
		FromAddress:       fromAddress(h),
		SentTo:            headerText(h, "To"),
		Cc:                headerText(h, "Cc"),
		Bcc:               headerText(h, "Bcc"),
		ReceivedAt:        time.UnixMilli(raw.InternalDate).UTC(),
		StoredAt:          n.now().UTC(),
		LabelIDs:          raw.LabelIDs,
	}, nil
}

// fromAddress returns the lowercased bare address of the first From mailbox.
func fromAddress(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return strings.ToLower(addrs[0].Address)
}

// headerOf builds a MIME header; lookups on it ignore case.
func headerOf(headers []maildomain.Header) mail.Header {
	var h mail.Header
	for _, hdr := range headers {
		h.Add(hdr.Name, hdr.Value)
	}
	return h
}

// headerText decodes RFC 2047 words, falling back to the raw value for unknown charsets.
func headerText(h mail.Header, key string) string {
	v, err := h.Text(key)
	if err != nil {
		v = h.Get(key)
	}
	return strings.TrimSpace(v)
}

// extractBody prefers the top-level body, then the first text/plain sub-part.
// No text part at all is not an error.
func extractBody(payload *maildomain.MessagePart) (string, error) {
	if payload.Data != "" {
		return decodeBodyData(payload.Data)
	}

	part := firstPlainPart(payload.Parts)
	if part == nil {
		return "", nil
	}
	return decodeBodyData(part.Data)
}

func firstPlainPart(parts []*maildomain.MessagePart) *maildomain.MessagePart {
	for _, part := range parts {
		if part == nil {
			continue
		}
		mimeType := strings.ToLower(strings.TrimSpace(strings.SplitN(part.MimeType, ";", 2)[0]))
		if mimeType == "text/plain" && part.Data != "" {
			return part
		}
		if found := firstPlainPart(part.Parts); found != nil {
			return found
		}
	}
	return nil
}

func decodeBodyData(data string) (string, error) {
	out, err := decodeBase64(data)
	if err != nil {
		return "", fmt.Errorf("body data is not base64url: %w", err)
	}
	return string(out), nil
}
