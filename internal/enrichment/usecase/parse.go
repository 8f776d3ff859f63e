package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Alok-Gaur/mail-management-agent/internal/enrichment/domain"
	"github.com/Alok-Gaur/mail-management-agent/pkg/fuzzy"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaBase = "https://mail-agent.local/schemas/"

var (
	classificationSchema = mustCompile("classification.json", `{
		"type": "object",
		"required": ["label"],
		"properties": {
			"label": {"type": "string"},
			"confidence": {"type": ["number", "string", "null"]},
			"reason": {"type": ["string", "null"]}
		}
	}`)

	financeSchema = mustCompile("finance.json", `{
		"type": "object",
		"properties": {
			"type": {"type": ["string", "null"]},
			"amount": {"type": ["number", "string", "null"]},
			"currency": {"type": ["string", "null"]},
			"date": {"type": ["string", "null"]},
			"vendor": {"type": ["string", "null"]},
			"category": {"type": ["string", "null"]},
			"notes": {"type": ["string", "null"]}
		}
	}`)

	eventSchema = mustCompile("event.json", `{
		"type": "object",
		"properties": {
			"title": {"type": ["string", "null"]},
			"start": {"type": ["string", "null"]},
			"end": {"type": ["string", "null"]},
			"location": {"type": ["string", "null"]},
			"description": {"type": ["string", "null"]},
			"priority": {"type": ["string", "null"]},
			"usability": {"type": ["number", "string", "null"]}
		}
	}`)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaBase+name, doc); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return c.MustCompile(schemaBase + name)
}

// extractJSON returns the text between the first '{' and the last '}' once
// markdown code fences are removed.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeValidated validates text against sch and decodes it into v.
func decodeValidated(sch *jsonschema.Schema, text string, v interface{}) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return err
	}
	return json.Unmarshal([]byte(text), v)
}

// flexFloat accepts a JSON number, a numeric string or null.
// A string that is not a number decodes to null.
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		f.v = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			f.v = &v
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.v = &v
	return nil
}

func (f flexFloat) valueOr(def float64) float64 {
	if f.v == nil {
		return def
	}
	return *f.v
}

type classificationPayload struct {
	Label      string    `json:"label"`
	Confidence flexFloat `json:"confidence"`
	Reason     *string   `json:"reason"`
}

type financePayload struct {
	Type     *string   `json:"type"`
	Amount   flexFloat `json:"amount"`
	Currency *string   `json:"currency"`
	Date     *string   `json:"date"`
	Vendor   *string   `json:"vendor"`
	Category *string   `json:"category"`
	Notes    *string   `json:"notes"`
}

type eventPayload struct {
	Title       *string   `json:"title"`
	Start       *string   `json:"start"`
	End         *string   `json:"end"`
	Location    *string   `json:"location"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	Usability   flexFloat `json:"usability"`
}

// parseClassification maps model output onto labels. ok is false when the
// output could not be parsed at all.
func parseClassification(raw string, labels []string) (domain.Classification, bool) {
	text, found := extractJSON(raw)
	if !found {
		return fallbackClassification(raw, labels), false
	}
	var p classificationPayload
	if err := decodeValidated(classificationSchema, text, &p); err != nil {
		return fallbackClassification(raw, labels), false
	}

	c := domain.Classification{
		Label:      domain.UncategorizedLabel,
		Confidence: clamp01(p.Confidence.valueOr(0)),
		Reason:     deref(p.Reason),
	}
	if label, ok := matchLabel(labels, p.Label); ok {
		c.Label = label
	} else if label, ok := fuzzy.Closest(labels, p.Label); ok {
		c.Label = label
	}
	return c, true
}

func fallbackClassification(raw string, labels []string) domain.Classification {
	label := domain.UncategorizedLabel
	if len(labels) > 0 {
		label = labels[0]
	}
	return domain.Classification{Label: label, Confidence: 0, Reason: truncate(raw, 300)}
}

// parseFinance returns the extracted record, or the label-derived fallback with ok false.
func parseFinance(raw, label string) (*domain.FinanceRecord, bool) {
	fallback := func() *domain.FinanceRecord {
		notes := truncate(raw, 300)
		return &domain.FinanceRecord{Kind: kindFromLabel(label), Notes: &notes}
	}

	text, found := extractJSON(raw)
	if !found {
		return fallback(), false
	}
	var p financePayload
	if err := decodeValidated(financeSchema, text, &p); err != nil {
		return fallback(), false
	}

	kind := kindFromLabel(label)
	switch domain.FinanceKind(strings.ToLower(strings.TrimSpace(deref(p.Type)))) {
	case domain.FinanceExpense:
		kind = domain.FinanceExpense
	case domain.FinanceIncome:
		kind = domain.FinanceIncome
	}

	return &domain.FinanceRecord{
		Kind:     kind,
		Amount:   p.Amount.v,
		Currency: nonBlank(p.Currency),
		Date:     nonBlank(p.Date),
		Vendor:   nonBlank(p.Vendor),
		Category: nonBlank(p.Category),
		Notes:    nonBlank(p.Notes),
	}, true
}

// parseEvent returns the event, nil when the output says there is none, and
// ok false when the output could not be parsed.
func parseEvent(raw string) (*domain.CalendarEvent, bool) {
	text, found := extractJSON(raw)
	if !found {
		return nil, false
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, false
	}
	if inner, ok := top["event"]; ok {
		if strings.TrimSpace(string(inner)) == "null" {
			return nil, true
		}
		text = string(inner)
	}

	var p eventPayload
	if err := decodeValidated(eventSchema, text, &p); err != nil {
		return nil, false
	}

	title := strings.TrimSpace(deref(p.Title))
	if title == "" {
		return nil, true
	}

	return &domain.CalendarEvent{
		Title:       title,
		Start:       nonBlank(p.Start),
		End:         nonBlank(p.End),
		Location:    strings.TrimSpace(deref(p.Location)),
		Description: strings.TrimSpace(deref(p.Description)),
		Priority:    normalizePriority(deref(p.Priority)),
		Usability:   clamp01(p.Usability.valueOr(0)),
	}, true
}

func normalizePriority(s string) domain.Priority {
	switch p := domain.Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return p
	default:
		return domain.PriorityMedium
	}
}

func kindFromLabel(label string) domain.FinanceKind {
	if strings.Contains(strings.ToLower(label), string(domain.FinanceIncome)) {
		return domain.FinanceIncome
	}
	return domain.FinanceExpense
}

// matchLabel finds got in labels case-insensitively and returns the configured spelling.
func matchLabel(labels []string, got string) (string, bool) {
	got = strings.TrimSpace(got)
	if got == "" {
		return "", false
	}
	for _, l := range labels {
		if strings.EqualFold(l, got) {
			return l, true
		}
	}
	return "", false
}

func containsFold(list []string, s string) bool {
	_, ok := matchLabel(list, s)
	return ok
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
