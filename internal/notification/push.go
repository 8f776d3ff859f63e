package notification

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/ingest/domain"
	"github.com/Alok-Gaur/mail-management-agent/pkg/fcm"
)

const pushTimeout = 10 * time.Second

type DeviceTokenStore interface {
	GetTokensByAccountID(ctx context.Context, accountID string) ([]accountdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.Notification) ([]string, error)
}

// PushNotifier tells an account's devices that a batch enriched new mail.
type PushNotifier struct {
	tokens DeviceTokenStore
	sender PushSender
}

func NewPushNotifier(tokens DeviceTokenStore, sender PushSender) *PushNotifier {
	return &PushNotifier{tokens: tokens, sender: sender}
}

// BatchCompleted sends one push per batch that enriched at least one message
// and prunes device tokens FCM rejected.
func (p *PushNotifier) BatchCompleted(ctx context.Context, summary *domain.BatchSummary) {
	enriched := summary.Enriched()
	if enriched == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	tokens, err := p.tokens.GetTokensByAccountID(ctx, summary.AccountID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for account %s: %v", summary.AccountID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failed, err := p.sender.SendToDevices(ctx, tokenStrings, batchNotification(summary, enriched))
	if err != nil {
		log.Printf("[FCM] Error sending batch notification for account %s: %v", summary.AccountID, err)
		return
	}

	for _, token := range failed {
		if err := p.tokens.DeleteToken(ctx, token); err != nil {
			log.Printf("[FCM] Failed to delete stale token: %v", err)
		}
	}
}

func batchNotification(summary *domain.BatchSummary, enriched int) fcm.Notification {
	title := "1 new email processed"
	if enriched > 1 {
		title = fmt.Sprintf("%d new emails processed", enriched)
	}

	return fcm.Notification{
		Title: title,
		Body:  labelBreakdown(summary),
		Data: map[string]string{
			"type":       "batch_summary",
			"account_id": summary.AccountID,
			"historyId":  strconv.FormatUint(summary.Cursor, 10),
			"enriched":   strconv.Itoa(enriched),
		},
	}
}

// labelBreakdown renders "Finance: 2, Work: 1", most frequent first.
func labelBreakdown(summary *domain.BatchSummary) string {
	counts := map[string]int{}
	for _, m := range summary.Messages {
		if m.Outcome == nil || m.Outcome.Classification.Label == "" {
			continue
		}
		counts[m.Outcome.Classification.Label]++
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s: %d", l, counts[l]))
	}
	return strings.Join(parts, ", ")
}
