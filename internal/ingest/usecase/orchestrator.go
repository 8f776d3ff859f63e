package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	accountdomain "github.com/Alok-Gaur/mail-management-agent/internal/account/domain"
	enrichdomain "github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	historydomain "github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/ingest/domain"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
	"github.com/Alok-Gaur/mail-management-agent/pkg/config"

	"golang.org/x/sync/errgroup"
)

// Orchestrator drives one change notification through dedup, resolution,
// normalization and enrichment.
type Orchestrator struct {
	accounts   AccountDirectory
	history    HistoryStore
	resolver   MessageResolver
	normalizer MessageNormalizer
	enricher   Enricher
	policy     config.Policy

	worker    *BatchWorker
	observers []BatchObserver
	now       func() time.Time
}

func NewOrchestrator(
	accounts AccountDirectory,
	history HistoryStore,
	resolver MessageResolver,
	normalizer MessageNormalizer,
	enricher Enricher,
	policy config.Policy,
) *Orchestrator {
	return &Orchestrator{
		accounts:   accounts,
		history:    history,
		resolver:   resolver,
		normalizer: normalizer,
		enricher:   enricher,
		policy:     policy,
		now:        time.Now,
	}
}

// UseWorker sets the pool Dispatch queues batches on.
func (o *Orchestrator) UseWorker(w *BatchWorker) {
	o.worker = w
}

// AddObserver registers an observer for summarized batches.
func (o *Orchestrator) AddObserver(obs BatchObserver) {
	o.observers = append(o.observers, obs)
}

// HandleChange processes the batch for one change notification synchronously.
func (o *Orchestrator) HandleChange(ctx context.Context, n maildomain.ChangeNotification, source historydomain.Source) (*domain.BatchSummary, error) {
	account, err := o.accounts.FindByEmail(ctx, n.AccountIdentifier)
	if err != nil {
		return nil, err
	}
	return o.process(ctx, account, n.ChangeCursor, source)
}

// Poll processes a manual batch for accountID. A zero cursor means the
// account's last recorded cursor.
func (o *Orchestrator) Poll(ctx context.Context, accountID string, cursor uint64) (*domain.BatchSummary, error) {
	account, err := o.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cursor == 0 {
		cursor = account.LastHistoryID
	}
	if cursor == 0 {
		return nil, domain.ErrNoCursor
	}
	return o.process(ctx, account, cursor, historydomain.SourceManual)
}

// Dispatch checks the account exists, then queues the batch in the background.
func (o *Orchestrator) Dispatch(ctx context.Context, n maildomain.ChangeNotification, source historydomain.Source) error {
	if _, err := o.accounts.FindByEmail(ctx, n.AccountIdentifier); err != nil {
		return err
	}
	if o.worker == nil {
		return fmt.Errorf("%w: no worker configured", domain.ErrQueueFull)
	}
	if !o.worker.Enqueue(BatchJob{Notification: n, Source: source}) {
		return domain.ErrQueueFull
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, account *accountdomain.Account, cursor uint64, source historydomain.Source) (*domain.BatchSummary, error) {
	summary := &domain.BatchSummary{
		AccountID: account.ID,
		Cursor:    cursor,
		Source:    source,
		Messages:  []domain.MessageResult{},
		State:     domain.StateDecoded,
		StartedAt: o.now(),
	}

	if err := o.deduplicate(ctx, summary); err != nil {
		return nil, err
	}
	if summary.Duplicate && o.policy.OnDuplicate == config.OnDuplicateSkip {
		log.Printf("[Ingest] account %s cursor %d already recorded, skipping", account.ID, cursor)
		summary.Skipped = true
		o.finish(ctx, summary)
		return summary, nil
	}
	summary.State = domain.StateDeduplicated

	summary.StartCursor = cursor
	if account.LastHistoryID > 0 && account.LastHistoryID < cursor {
		summary.StartCursor = account.LastHistoryID
	}

	ids, err := o.resolver.Resolve(ctx, account.ID, summary.StartCursor)
	switch {
	case errors.Is(err, maildomain.ErrEmptyHistory):
		ids = nil
	case err != nil:
		log.Printf("[Ingest] resolve failed for account %s cursor %d: %v", account.ID, summary.StartCursor, err)
		summary.State = domain.StateSummarized
		summary.FinishedAt = o.now()
		return summary, err
	}
	summary.State = domain.StateResolved

	if len(ids) > 0 {
		profile, err := o.accounts.Profile(ctx, account)
		if err != nil {
			return nil, err
		}
		summary.State = domain.StatePerMessage
		summary.Messages = o.runMessages(ctx, account, cursor, ids, profile)
	}

	// Unfinished messages are listed again from the start cursor by the next batch.
	advanceTo := cursor
	if summary.Retryable() {
		summary.CursorHeld = true
		advanceTo = summary.StartCursor
		log.Printf("[Ingest] account %s cursor held at %d, some messages will be retried", account.ID, advanceTo)
	}
	if _, err := o.accounts.AdvanceCursor(ctx, account.ID, advanceTo); err != nil {
		log.Printf("[Ingest] failed to advance cursor for account %s: %v", account.ID, err)
	}
	o.finish(ctx, summary)

	log.Printf("[Ingest] account %s cursor %d: %d messages, %d enriched", account.ID, cursor, len(summary.Messages), summary.Enriched())
	return summary, nil
}

func (o *Orchestrator) deduplicate(ctx context.Context, summary *domain.BatchSummary) error {
	seen, err := o.history.HasSeen(ctx, summary.AccountID, summary.Cursor)
	if err != nil {
		return err
	}
	if seen {
		summary.Duplicate = true
		return nil
	}

	_, err = o.history.Record(ctx, summary.AccountID, summary.Cursor, summary.Source)
	switch {
	case errors.Is(err, historydomain.ErrDuplicate):
		summary.Duplicate = true
	case err != nil:
		return err
	}
	return nil
}

// runMessages enriches ids with bounded parallelism. Results keep provider
// order. Once the batch deadline passes no further message is started.
func (o *Orchestrator) runMessages(ctx context.Context, account *accountdomain.Account, cursor uint64, ids []string, profile enrichdomain.Profile) []domain.MessageResult {
	results := make([]domain.MessageResult, len(ids))
	deadline := o.now().Add(o.policy.BatchDeadline)

	var g errgroup.Group
	g.SetLimit(o.policy.Concurrency)

	for i, id := range ids {
		g.Go(func() error {
			switch {
			case o.policy.BatchDeadline > 0 && o.now().After(deadline):
				results[i] = domain.MessageResult{MessageID: id, FailureReason: domain.DeadlineExceededReason, Retryable: true}
			case ctx.Err() != nil:
				results[i] = domain.MessageResult{MessageID: id, FailureReason: ctx.Err().Error(), Retryable: true}
			default:
				results[i] = o.runMessage(ctx, account, cursor, id, profile)
			}
			return nil
		})
	}
	_ = g.Wait()

	if skipped := countReason(results, domain.DeadlineExceededReason); skipped > 0 {
		log.Printf("[Ingest] batch deadline passed for account %s, %d messages not started", account.ID, skipped)
	}
	return results
}

func countReason(results []domain.MessageResult, reason string) int {
	n := 0
	for _, r := range results {
		if r.FailureReason == reason {
			n++
		}
	}
	return n
}

func (o *Orchestrator) runMessage(ctx context.Context, account *accountdomain.Account, cursor uint64, messageID string, profile enrichdomain.Profile) domain.MessageResult {
	fetchCtx, cancel := withTimeout(ctx, o.policy.FetchTimeout)
	doc, err := o.normalizer.Normalize(fetchCtx, account.ID, cursor, messageID)
	cancel()
	if err != nil {
		log.Printf("[Ingest] skipping message %s: %v", messageID, err)
		return domain.MessageResult{MessageID: messageID, FailureReason: err.Error(), Retryable: retryable(err)}
	}

	if reason := ownMessageReason(doc, account.Email); reason != "" {
		return domain.MessageResult{MessageID: messageID, SkipReason: reason}
	}

	return domain.MessageResult{
		MessageID: messageID,
		Outcome:   o.enricher.Run(ctx, *doc, profile),
	}
}

// retryable reports whether a normalize failure may succeed on a later fetch.
// Deleted and malformed messages never will.
func retryable(err error) bool {
	return !errors.Is(err, maildomain.ErrNotFound) && !errors.Is(err, maildomain.ErrMalformedMessage)
}

// ownMessageReason returns why doc must not be enriched, or "" for inbound mail.
func ownMessageReason(doc *maildomain.NormalizedDocument, accountEmail string) string {
	switch {
	case doc.HasLabel(maildomain.LabelDraft):
		return domain.SkipReasonDraft
	case doc.HasLabel(maildomain.LabelSent):
		return domain.SkipReasonOwnMessage
	case doc.FromAddress != "" && strings.EqualFold(doc.FromAddress, accountEmail):
		return domain.SkipReasonOwnMessage
	}
	return ""
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (o *Orchestrator) finish(ctx context.Context, summary *domain.BatchSummary) {
	summary.State = domain.StateSummarized
	summary.FinishedAt = o.now()
	for _, obs := range o.observers {
		obs.BatchCompleted(ctx, summary)
	}
}
