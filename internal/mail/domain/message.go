package domain

import "time"

// System labels of messages the account wrote itself.
const (
	LabelDraft = "DRAFT"
	LabelSent  = "SENT"
)

// Header is a single raw message header as reported by the provider.
type Header struct {
	Name  string
	Value string
}

// MessagePart mirrors the provider's MIME tree. Data is base64url encoded.
type MessagePart struct {
	MimeType string
	Filename string
	Headers  []Header
	Data     string
	Parts    []*MessagePart
}

// RawMessage is a provider message fetched in full format.
type RawMessage struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	InternalDate int64 // milliseconds since epoch
	Payload      *MessagePart
}

// NormalizedDocument is the immutable input of every enrichment stage.
type NormalizedDocument struct {
	MessageID         string    `json:"message_id"`
	AccountID         string    `json:"account_id"`
	HistoryCursor     uint64    `json:"history_cursor"`
	ThreadID          string    `json:"thread_id,omitempty"`
	InternetMessageID string    `json:"internet_message_id,omitempty"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body"`
	SentBy            string    `json:"sent_by"`
	FromAddress       string    `json:"from_address,omitempty"`
	SentTo            string    `json:"sent_to"`
	Cc                string    `json:"cc,omitempty"`
	Bcc               string    `json:"bcc,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
	StoredAt          time.Time `json:"stored_at"`
	LabelIDs          []string  `json:"label_ids,omitempty"`
}

func (d NormalizedDocument) HasLabel(labelID string) bool {
	for _, l := range d.LabelIDs {
		if l == labelID {
			return true
		}
	}
	return false
}

// WatchResult is returned when a mailbox watch is (re)established.
type WatchResult struct {
	HistoryID  uint64
	Expiration time.Time
}

// HistoryChanges is one full listing of provider history since a cursor.
// Records counts every history entry, AddedMessageIDs only the message-added ones.
type HistoryChanges struct {
	Records         int
	AddedMessageIDs []string
}
