package domain

import (
	"errors"
	"time"

	enrichdomain "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
)

var (
	// ErrNoCursor is returned by a manual poll when neither the request nor the account has a cursor.
	ErrNoCursor = errors.New("no history cursor to poll from")
	// ErrQueueFull is returned when the batch worker queue cannot take another job.
	ErrQueueFull = errors.New("batch queue full")
)

// DeadlineExceededReason is the failure reason of messages never started before the batch deadline.
const DeadlineExceededReason = "batch deadline exceeded"

// Skip reasons for messages the account wrote itself.
const (
	SkipReasonDraft      = "draft"
	SkipReasonOwnMessage = "sent by the account"
)

// State is the lifecycle position of one notification batch.
type State string

const (
	StateDecoded      State = "decoded"
	StateDeduplicated State = "deduplicated"
	StateResolved     State = "resolved"
	StatePerMessage   State = "per_message"
	StateSummarized   State = "summarized"
)

// MessageResult holds an outcome, a skip reason or the reason the message was
// not enriched. Retryable failures keep the account cursor where it was.
type MessageResult struct {
	MessageID     string                       `json:"message_id"`
	Outcome       *enrichdomain.MessageOutcome `json:"outcome,omitempty"`
	SkipReason    string                       `json:"skip_reason,omitempty"`
	FailureReason string                       `json:"failure_reason,omitempty"`
	Retryable     bool                         `json:"retryable,omitempty"`
}

type BatchSummary struct {
	AccountID   string               `json:"account_id"`
	Cursor      uint64               `json:"cursor"`
	StartCursor uint64               `json:"start_cursor,omitempty"`
	Source      historydomain.Source `json:"source"`
	Duplicate   bool                 `json:"duplicate"`
	Skipped     bool                 `json:"skipped"`
	CursorHeld  bool                 `json:"cursor_held,omitempty"`
	Messages    []MessageResult      `json:"messages"`
	State       State                `json:"state"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
}

// Enriched counts messages that reached the pipeline.
func (s *BatchSummary) Enriched() int {
	n := 0
	for _, m := range s.Messages {
		if m.Outcome != nil {
			n++
		}
	}
	return n
}

// Retryable reports whether any message failed in a way a later batch can recover.
func (s *BatchSummary) Retryable() bool {
	for _, m := range s.Messages {
		if m.Retryable {
			return true
		}
	}
	return false
}
