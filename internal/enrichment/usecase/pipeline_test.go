package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/repository"
	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedReply struct {
	text string
	err  error
}

// scriptedGenerator answers by prompt kind.
type scriptedGenerator struct {
	mu       sync.Mutex
	classify cannedReply
	finance  cannedReply
	reply    cannedReply
	event    cannedReply
	calls    map[string]int
	tokens   map[string]int
}

func newScripted() *scriptedGenerator {
	return &scriptedGenerator{
		classify: cannedReply{text: `{"label":"Work","confidence":0.9,"reason":"meeting"}`},
		finance:  cannedReply{text: `{"type":"expense","amount":10}`},
		reply:    cannedReply{text: "Thanks, will do."},
		event:    cannedReply{text: `{"event": null}`},
		calls:    map[string]int{},
		tokens:   map[string]int{},
	}
}

func promptKind(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "You are a classifier"):
		return "classify"
	case strings.HasPrefix(prompt, "Extract a JSON object"):
		return "finance"
	case strings.HasPrefix(prompt, "You are an assistant"):
		return "reply"
	case strings.HasPrefix(prompt, "Extract event"):
		return "event"
	}
	return "unknown"
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	kind := promptKind(prompt)
	g.calls[kind]++
	g.tokens[kind] = maxTokens

	var r cannedReply
	switch kind {
	case "classify":
		r = g.classify
	case "finance":
		r = g.finance
	case "reply":
		r = g.reply
	case "event":
		r = g.event
	}
	return r.text, r.err
}

type fakeIndex struct {
	collection string
	docID      string
	text       string
	metadata   map[string]interface{}
	err        error
}

func (f *fakeIndex) Upsert(ctx context.Context, collectionName, docID, text string, metadata map[string]interface{}) error {
	f.collection, f.docID, f.text, f.metadata = collectionName, docID, text, metadata
	return f.err
}

type fakeLabeler struct {
	applied []string
	err     error
}

func (f *fakeLabeler) ApplyLabel(ctx context.Context, accountID, messageID, label string) error {
	f.applied = append(f.applied, messageID+":"+label)
	return f.err
}

type fakeDrafter struct {
	calls int
	err   error
}

func (f *fakeDrafter) CreateReplyDraft(ctx context.Context, doc maildomain.NormalizedDocument, body string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "draft-" + doc.MessageID, nil
}

var testDoc = maildomain.NormalizedDocument{
	MessageID: "m1",
	AccountID: "acc1",
	ThreadID:  "t1",
	Subject:   "Invoice #12",
	Body:      "Please pay 10 USD",
	SentBy:    "billing@example.com",
	SentTo:    "me@example.com",
}

func baseProfile() domain.Profile {
	return domain.Profile{
		AccountID:        "acc1",
		Role:             "employee",
		Labels:           []string{"Work", "Expense", "Income", "Customer Query"},
		NeedsReplyLabels: []string{"customer query", "inquiry", "question"},
		AlwaysReplyRoles: []string{"owner", "student"},
		FinanceLabels:    []string{"expense", "income"},
		AutoLabel:        true,
		AutoResponse:     true,
		CreateDraft:      true,
		ScheduleEvent:    true,
	}
}

type harness struct {
	gen      *scriptedGenerator
	index    *fakeIndex
	labeler  *fakeLabeler
	drafter  *fakeDrafter
	finance  repository.FinanceRepository
	drafts   repository.DraftRepository
	events   repository.EventRepository
	pipeline *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t, &domain.FinanceRecord{}, &domain.ReplyDraft{}, &domain.CalendarEvent{})
	h := &harness{
		gen:     newScripted(),
		index:   &fakeIndex{},
		labeler: &fakeLabeler{},
		drafter: &fakeDrafter{},
		finance: repository.NewGormFinanceRepository(db),
		drafts:  repository.NewGormDraftRepository(db),
		events:  repository.NewGormEventRepository(db),
	}
	h.pipeline = NewPipeline(Deps{
		Generator: h.gen,
		Index:     h.index,
		Labeler:   h.labeler,
		Drafter:   h.drafter,
		Finance:   h.finance,
		Drafts:    h.drafts,
		Events:    h.events,
	}, time.Second)
	return h
}

func TestRun_NonFinanceWithoutReplyOrEvent(t *testing.T) {
	h := newHarness(t)

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())

	assert.Equal(t, "m1", out.MessageID)
	assert.Equal(t, "Work", out.Classification.Label)
	assert.True(t, out.Labeled)
	assert.Equal(t, []string{"m1:Work"}, h.labeler.applied)
	assert.True(t, out.Indexed)
	assert.Nil(t, out.Finance)
	assert.Nil(t, out.Reply)
	assert.Nil(t, out.Event)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Fallbacks)
	assert.Zero(t, h.gen.calls["finance"], "finance is never asked for non-finance labels")
	assert.Zero(t, h.gen.calls["reply"])
	assert.Equal(t, 1, h.gen.calls["event"], "event extraction is always attempted")
	assert.Equal(t, 256, h.gen.tokens["classify"])
	assert.Equal(t, 200, h.gen.tokens["event"])
}

func TestRun_IndexDocument(t *testing.T) {
	h := newHarness(t)

	h.pipeline.Run(context.Background(), testDoc, baseProfile())

	assert.Equal(t, "user_acc1_emails", h.index.collection)
	assert.Equal(t, "m1", h.index.docID)
	assert.Equal(t, "Subject: Invoice #12\n\nPlease pay 10 USD", h.index.text)
	assert.Equal(t, "Work", h.index.metadata["label"])
	assert.Equal(t, "meeting", h.index.metadata["classification_reason"])
	assert.Equal(t, "acc1", h.index.metadata["account_id"])
	assert.Equal(t, "billing@example.com", h.index.metadata["sent_by"])
}

func TestRun_FinanceLabelExtractsAndPersists(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Expense","confidence":0.97,"reason":"invoice"}`}
	h.gen.finance = cannedReply{text: "```json\n{\"type\":\"expense\",\"amount\":\"10\",\"currency\":\"USD\",\"vendor\":\"ACME\"}\n```"}

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())

	require.NotNil(t, out.Finance)
	assert.Equal(t, domain.FinanceExpense, out.Finance.Kind)
	assert.Equal(t, 10.0, *out.Finance.Amount)
	assert.Equal(t, "ACME", *out.Finance.Vendor)
	assert.Equal(t, 200, h.gen.tokens["finance"])
	assert.Empty(t, out.Errors)

	stored, err := h.finance.ListByAccount(context.Background(), "acc1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "m1", stored[0].MessageID)
}

func TestRun_ConfiguredFinanceLabel(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Finance","confidence":0.9,"reason":"bill"}`}
	profile := baseProfile()
	profile.Labels = append(profile.Labels, "Finance")

	out := h.pipeline.Run(context.Background(), testDoc, profile)
	assert.Nil(t, out.Finance, "finance is not a finance label by default")

	profile.FinanceLabels = append(profile.FinanceLabels, "finance")
	out = h.pipeline.Run(context.Background(), testDoc, profile)
	require.NotNil(t, out.Finance)
}

func TestRun_NonJSONOutputsFallBack(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: "I think this is about money"}
	h.gen.event = cannedReply{text: "there is no event"}
	profile := baseProfile()
	profile.Labels = []string{"Expense", "Work"}

	out := h.pipeline.Run(context.Background(), testDoc, profile)

	assert.Equal(t, "Expense", out.Classification.Label, "first configured label")
	assert.Zero(t, out.Classification.Confidence)
	assert.Equal(t, "I think this is about money", out.Classification.Reason)
	assert.False(t, out.Labeled, "a fallback label is never pushed to the mailbox")
	assert.Empty(t, h.labeler.applied)
	assert.Nil(t, out.Event)
	assert.Contains(t, out.Fallbacks, domain.StageClassify)
	assert.Contains(t, out.Fallbacks, domain.StageEvent)
	assert.Empty(t, out.Errors, "parse failures are not errors")
	require.NotNil(t, out.Finance, "fallback label still drives finance")
}

func TestRun_FinanceFallbackKeepsRawNotes(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Income","confidence":0.9,"reason":"payout"}`}
	h.gen.finance = cannedReply{text: "You got paid"}

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())

	require.NotNil(t, out.Finance)
	assert.Equal(t, domain.FinanceIncome, out.Finance.Kind)
	assert.Nil(t, out.Finance.Amount)
	assert.Equal(t, "You got paid", *out.Finance.Notes)
	assert.Contains(t, out.Fallbacks, domain.StageFinance)
}

func TestRun_UnknownLabelIsUncategorized(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Spam","confidence":0.6,"reason":"ads"}`}

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())

	assert.Equal(t, domain.UncategorizedLabel, out.Classification.Label)
	assert.Equal(t, 0.6, out.Classification.Confidence)
	assert.False(t, out.Labeled)
	assert.Empty(t, h.labeler.applied)
	assert.Empty(t, out.Fallbacks)
}

func TestRun_ReplyPolicy(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		role      string
		auto      bool
		wantReply bool
	}{
		{"customer query label", "Customer Query", "employee", true, true},
		{"owner role", "Work", "Owner", true, true},
		{"neither", "Work", "employee", true, false},
		{"auto response off", "Customer Query", "owner", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.gen.classify = cannedReply{text: `{"label":"` + tt.label + `","confidence":0.9,"reason":"r"}`}
			profile := baseProfile()
			profile.Role = tt.role
			profile.AutoResponse = tt.auto

			out := h.pipeline.Run(context.Background(), testDoc, profile)

			if tt.wantReply {
				require.NotNil(t, out.Reply)
				assert.Equal(t, "Thanks, will do.", out.Reply.Body)
				assert.Equal(t, 400, h.gen.tokens["reply"])
			} else {
				assert.Nil(t, out.Reply)
				assert.Zero(t, h.gen.calls["reply"])
			}
		})
	}
}

func TestRun_DraftCreatedOnce(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Customer Query","confidence":0.9,"reason":"asks"}`}
	h.gen.reply = cannedReply{text: "  Hello, happy to help.  \n"}

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Hello, happy to help.", out.Reply.Body)
	assert.Equal(t, "draft-m1", out.DraftID)
	assert.Equal(t, 1, h.drafter.calls)

	again := h.pipeline.Run(context.Background(), testDoc, baseProfile())
	require.NotNil(t, again.Reply)
	assert.Equal(t, "draft-m1", again.DraftID, "the stored provider draft is reported")
	assert.Equal(t, 1, h.drafter.calls, "redelivery does not create a second provider draft")
	assert.Empty(t, again.Errors)
}

func TestRun_DraftRetriedAfterProviderFailure(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Customer Query","confidence":0.9,"reason":"asks"}`}
	h.drafter.err = errors.New("503 backend error")

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())
	assert.True(t, out.Failed(domain.StageDraft))
	assert.Empty(t, out.DraftID)

	h.drafter.err = nil
	again := h.pipeline.Run(context.Background(), testDoc, baseProfile())
	assert.Empty(t, again.Errors)
	assert.Equal(t, "draft-m1", again.DraftID)
	assert.Equal(t, 2, h.drafter.calls)

	stored, err := h.drafts.FindByMessage(context.Background(), "acc1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "draft-m1", stored.ProviderDraftID)

	third := h.pipeline.Run(context.Background(), testDoc, baseProfile())
	assert.Equal(t, "draft-m1", third.DraftID)
	assert.Equal(t, 2, h.drafter.calls, "a stored provider draft is not created again")
}

func TestRun_EmptyReplyIsFailure(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Customer Query","confidence":0.9,"reason":"asks"}`}
	h.gen.reply = cannedReply{text: "   "}

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())

	assert.Nil(t, out.Reply)
	assert.True(t, out.Failed(domain.StageReply))
	assert.Zero(t, h.drafter.calls)
}

func TestRun_TogglesOff(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Customer Query","confidence":0.9,"reason":"asks"}`}
	h.gen.event = cannedReply{text: `{"title":"Call","start":"2024-05-02T10:00:00Z","priority":"low","usability":0.4}`}
	profile := baseProfile()
	profile.AutoLabel = false
	profile.CreateDraft = false
	profile.ScheduleEvent = false

	out := h.pipeline.Run(context.Background(), testDoc, profile)

	assert.False(t, out.Labeled)
	assert.Empty(t, h.labeler.applied)
	require.NotNil(t, out.Reply)
	assert.Zero(t, h.drafter.calls)
	require.NotNil(t, out.Event, "events are still extracted")
	assert.Equal(t, domain.PriorityLow, out.Event.Priority)

	events, err := h.events.ListByAccount(context.Background(), "acc1", 0)
	require.NoError(t, err)
	assert.Empty(t, events, "but not persisted")
}

func TestRun_EventPersisted(t *testing.T) {
	h := newHarness(t)
	h.gen.event = cannedReply{text: `{"event":{"title":"Quarterly review","start":"2024-06-01T15:00:00Z","location":"Room 4"}}`}

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())
	require.NotNil(t, out.Event)

	events, err := h.events.ListByAccount(context.Background(), "acc1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Quarterly review", events[0].Title)
	assert.Equal(t, domain.PriorityMedium, events[0].Priority)
}

func TestRun_StageFailuresAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.gen.classify = cannedReply{text: `{"label":"Expense","confidence":0.9,"reason":"r"}`}
	h.gen.finance = cannedReply{err: errors.New("connection refused")}
	h.index.err = errors.New("chroma down")
	h.labeler.err = errors.New("label quota")

	out := h.pipeline.Run(context.Background(), testDoc, baseProfile())

	assert.True(t, out.Failed(domain.StageLabel))
	assert.True(t, out.Failed(domain.StageIndex))
	assert.True(t, out.Failed(domain.StageFinance))
	assert.False(t, out.Indexed)
	assert.Nil(t, out.Finance)
	assert.Equal(t, 1, h.gen.calls["event"], "later stages still run")
}

func TestRun_AllGenerationFails(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("backend unavailable")
	h.gen.classify = cannedReply{err: boom}
	h.gen.finance = cannedReply{err: boom}
	h.gen.reply = cannedReply{err: boom}
	h.gen.event = cannedReply{err: boom}
	h.index.err = boom
	profile := baseProfile()
	profile.Labels = []string{"Expense"}
	profile.Role = "owner"

	out := h.pipeline.Run(context.Background(), testDoc, profile)

	require.NotNil(t, out)
	assert.Equal(t, "Expense", out.Classification.Label)
	assert.Zero(t, out.Classification.Confidence)
	for _, stage := range []domain.Stage{domain.StageClassify, domain.StageIndex, domain.StageFinance, domain.StageReply, domain.StageEvent} {
		assert.True(t, out.Failed(stage), stage)
	}
	assert.Contains(t, out.Errors[domain.StageClassify], domain.ErrGeneration.Error())
	assert.Nil(t, out.Finance)
	assert.Nil(t, out.Reply)
	assert.Nil(t, out.Event)
}

func TestRun_StageTimeout(t *testing.T) {
	slow := generatorFunc(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := NewPipeline(Deps{Generator: slow}, 10*time.Millisecond)

	start := time.Now()
	out := p.Run(context.Background(), testDoc, baseProfile())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, out.Failed(domain.StageClassify))
	assert.True(t, out.Failed(domain.StageEvent))
	assert.Contains(t, out.Errors[domain.StageClassify], context.DeadlineExceeded.Error())
}

type generatorFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}
