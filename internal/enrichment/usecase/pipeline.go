package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/repository"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
	"github.com/Alok-Gaur/mail-management-agent/pkg/ai"
)

// SearchIndex stores documents for semantic search.
type SearchIndex interface {
	Upsert(ctx context.Context, collectionName, docID, text string, metadata map[string]interface{}) error
}

// Labeler applies a label to the provider copy of a message.
type Labeler interface {
	ApplyLabel(ctx context.Context, accountID, messageID, label string) error
}

// Drafter stores a reply as a provider draft in the original thread.
type Drafter interface {
	CreateReplyDraft(ctx context.Context, doc maildomain.NormalizedDocument, body string) (string, error)
}

// Deps collects the pipeline collaborators. Only Generator is required; a
// nil collaborator disables the work that needs it.
type Deps struct {
	Generator ai.TextGenerator
	Index     SearchIndex
	Labeler   Labeler
	Drafter   Drafter
	Finance   repository.FinanceRepository
	Drafts    repository.DraftRepository
	Events    repository.EventRepository
}

type Pipeline struct {
	deps         Deps
	stageTimeout time.Duration
}

func NewPipeline(deps Deps, stageTimeout time.Duration) *Pipeline {
	return &Pipeline{deps: deps, stageTimeout: stageTimeout}
}

// Run enriches one message. Stages run in order and a failing stage never
// stops the ones after it; every failure ends up in the outcome.
func (p *Pipeline) Run(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile) *domain.MessageOutcome {
	out := domain.NewMessageOutcome(doc.MessageID)

	fellBack := p.classify(ctx, doc, profile, out)
	if !fellBack {
		p.label(ctx, doc, profile, out)
	}
	p.index(ctx, doc, profile, out)
	p.finance(ctx, doc, profile, out)
	p.reply(ctx, doc, profile, out)
	p.event(ctx, doc, profile, out)

	if len(out.Errors) > 0 {
		log.Printf("[Pipeline] message %s finished with errors: %v", doc.MessageID, out.Errors)
	}
	return out
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.stageTimeout)
}

func (p *Pipeline) generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	text, err := p.deps.Generator.Generate(ctx, prompt, maxTokens, temperature)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	return text, nil
}

// classify fills out.Classification and reports whether the result is a fallback.
func (p *Pipeline) classify(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile, out *domain.MessageOutcome) bool {
	raw, err := p.generate(ctx, classifyPrompt(doc.Subject, doc.Body, profile.Labels), 256, 0)
	if err != nil {
		out.RecordError(domain.StageClassify, err)
		out.Classification = fallbackClassification("", profile.Labels)
		out.RecordFallback(domain.StageClassify)
		return true
	}

	c, ok := parseClassification(raw, profile.Labels)
	out.Classification = c
	if !ok {
		out.RecordFallback(domain.StageClassify)
		return true
	}
	return false
}

func (p *Pipeline) label(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile, out *domain.MessageOutcome) {
	label := out.Classification.Label
	if !profile.AutoLabel || p.deps.Labeler == nil || strings.EqualFold(label, domain.UncategorizedLabel) {
		return
	}

	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	if err := p.deps.Labeler.ApplyLabel(ctx, doc.AccountID, doc.MessageID, label); err != nil {
		out.RecordError(domain.StageLabel, err)
		return
	}
	out.Labeled = true
}

// CollectionName is the per-account search collection.
func CollectionName(accountID string) string {
	return fmt.Sprintf("user_%s_emails", accountID)
}

func (p *Pipeline) index(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile, out *domain.MessageOutcome) {
	if p.deps.Index == nil {
		return
	}

	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	text := fmt.Sprintf("Subject: %s\n\n%s", doc.Subject, doc.Body)
	metadata := map[string]interface{}{
		"account_id":            doc.AccountID,
		"label":                 out.Classification.Label,
		"classification_reason": out.Classification.Reason,
		"subject":               doc.Subject,
		"sent_by":               doc.SentBy,
	}
	if err := p.deps.Index.Upsert(ctx, CollectionName(doc.AccountID), doc.MessageID, text, metadata); err != nil {
		out.RecordError(domain.StageIndex, err)
		return
	}
	out.Indexed = true
}

func (p *Pipeline) finance(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile, out *domain.MessageOutcome) {
	label := out.Classification.Label
	if !containsFold(profile.FinanceLabels, label) {
		return
	}

	raw, err := p.generate(ctx, financePrompt(doc.Subject, doc.Body), 200, 0)
	if err != nil {
		out.RecordError(domain.StageFinance, err)
		return
	}

	record, ok := parseFinance(raw, label)
	if !ok {
		out.RecordFallback(domain.StageFinance)
	}
	record.AccountID = doc.AccountID
	record.MessageID = doc.MessageID
	out.Finance = record

	if p.deps.Finance == nil {
		return
	}
	if _, err := p.deps.Finance.Save(ctx, record); err != nil {
		out.RecordError(domain.StageFinance, fmt.Errorf("save finance record: %w", err))
	}
}

func shouldReply(profile domain.Profile, label string) bool {
	if !profile.AutoResponse {
		return false
	}
	return containsFold(profile.NeedsReplyLabels, label) || containsFold(profile.AlwaysReplyRoles, profile.Role)
}

func (p *Pipeline) reply(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile, out *domain.MessageOutcome) {
	if !shouldReply(profile, out.Classification.Label) {
		return
	}

	raw, err := p.generate(ctx, replyPrompt(doc.Subject, doc.Body, profile.Role), 400, 0)
	if err != nil {
		out.RecordError(domain.StageReply, err)
		return
	}
	body := strings.TrimSpace(raw)
	if body == "" {
		out.RecordError(domain.StageReply, fmt.Errorf("%w: empty reply", domain.ErrGeneration))
		return
	}

	draft := &domain.ReplyDraft{AccountID: doc.AccountID, MessageID: doc.MessageID, Body: body}
	out.Reply = draft

	if !profile.CreateDraft || p.deps.Drafts == nil {
		return
	}
	p.draft(ctx, doc, draft, out)
}

// draft persists the reply and creates the provider draft unless the stored
// row already has one.
func (p *Pipeline) draft(ctx context.Context, doc maildomain.NormalizedDocument, draft *domain.ReplyDraft, out *domain.MessageOutcome) {
	inserted, err := p.deps.Drafts.Save(ctx, draft)
	if err != nil {
		out.RecordError(domain.StageDraft, fmt.Errorf("save reply draft: %w", err))
		return
	}
	if !inserted {
		stored, err := p.deps.Drafts.FindByMessage(ctx, draft.AccountID, draft.MessageID)
		if err != nil {
			out.RecordError(domain.StageDraft, fmt.Errorf("load reply draft: %w", err))
			return
		}
		*draft = *stored
		if draft.ProviderDraftID != "" {
			out.DraftID = draft.ProviderDraftID
			return
		}
	}
	if p.deps.Drafter == nil {
		return
	}

	dctx, cancel := p.stageContext(ctx)
	defer cancel()

	id, err := p.deps.Drafter.CreateReplyDraft(dctx, doc, draft.Body)
	if err != nil {
		out.RecordError(domain.StageDraft, err)
		return
	}
	draft.ProviderDraftID = id
	out.DraftID = id
	if err := p.deps.Drafts.SetProviderDraftID(ctx, draft.ID, id); err != nil {
		out.RecordError(domain.StageDraft, fmt.Errorf("store provider draft id: %w", err))
	}
}

func (p *Pipeline) event(ctx context.Context, doc maildomain.NormalizedDocument, profile domain.Profile, out *domain.MessageOutcome) {
	raw, err := p.generate(ctx, eventPrompt(doc.Subject, doc.Body), 200, 0)
	if err != nil {
		out.RecordError(domain.StageEvent, err)
		return
	}

	ev, ok := parseEvent(raw)
	if !ok {
		out.RecordFallback(domain.StageEvent)
		return
	}
	if ev == nil {
		return
	}
	ev.AccountID = doc.AccountID
	ev.MessageID = doc.MessageID
	out.Event = ev

	if !profile.ScheduleEvent || p.deps.Events == nil {
		return
	}
	if _, err := p.deps.Events.Save(ctx, ev); err != nil {
		out.RecordError(domain.StageEvent, fmt.Errorf("save event: %w", err))
	}
}
