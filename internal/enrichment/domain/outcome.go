package domain

import "errors"

// Stage names one independently failable enrichment step.
type Stage string

const (
	StageClassify Stage = "classify"
	StageLabel    Stage = "label"
	StageIndex    Stage = "index"
	StageFinance  Stage = "finance"
	StageReply    Stage = "reply"
	StageDraft    Stage = "draft"
	StageEvent    Stage = "event"
)

// UncategorizedLabel is the reserved label for inconclusive classification.
const UncategorizedLabel = "uncategorized"

// ErrGeneration marks a text-generation transport failure inside a stage.
var ErrGeneration = errors.New("generation error")

type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// MessageOutcome is the aggregated result of one pipeline run. It is always
// returned, even when every stage failed.
type MessageOutcome struct {
	MessageID      string           `json:"message_id"`
	Classification Classification   `json:"classification"`
	Labeled        bool             `json:"labeled"`
	Indexed        bool             `json:"indexed"`
	Finance        *FinanceRecord   `json:"finance,omitempty"`
	Reply          *ReplyDraft      `json:"reply,omitempty"`
	Event          *CalendarEvent   `json:"event,omitempty"`
	DraftID        string           `json:"draft_id,omitempty"`
	Errors         map[Stage]string `json:"errors,omitempty"`
	Fallbacks      []Stage          `json:"fallbacks,omitempty"`
}

func NewMessageOutcome(messageID string) *MessageOutcome {
	return &MessageOutcome{MessageID: messageID, Errors: map[Stage]string{}}
}

func (o *MessageOutcome) RecordError(stage Stage, err error) {
	if err == nil {
		return
	}
	o.Errors[stage] = err.Error()
}

func (o *MessageOutcome) RecordFallback(stage Stage) {
	o.Fallbacks = append(o.Fallbacks, stage)
}

// Failed reports whether stage recorded an error.
func (o *MessageOutcome) Failed(stage Stage) bool {
	_, ok := o.Errors[stage]
	return ok
}

// Profile is the per-account policy the pipeline runs under.
type Profile struct {
	AccountID        string
	Role             string
	Labels           []string
	NeedsReplyLabels []string
	AlwaysReplyRoles []string
	FinanceLabels    []string

	AutoLabel     bool
	AutoResponse  bool
	CreateDraft   bool
	ScheduleEvent bool
}
