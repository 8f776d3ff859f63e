package usecase

import (
	"fmt"
	"strings"
)

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func classifyPrompt(subject, body string, labels []string) string {
	return fmt.Sprintf(`You are a classifier. Given an email SUBJECT and BODY, choose the best label
from the user-provided labels: %s

Output a JSON object with keys: label, confidence (0-1), reason.

SUBJECT:
%s

BODY:
%s

Respond ONLY with JSON.`, quoteList(labels), subject, body)
}

func financePrompt(subject, body string) string {
	return fmt.Sprintf(`Extract a JSON object with keys: type (expense|income), amount (number), currency, date (YYYY-MM-DD or best guess), vendor, category, notes.

EMAIL SUBJECT:
%s

EMAIL BODY:
%s

Respond only with JSON.`, subject, body)
}

func replyPrompt(subject, body, role string) string {
	if role == "" {
		role = "user"
	}
	return fmt.Sprintf(`You are an assistant. Compose a polite email reply tailored to a %s.
Include greeting, concise body addressing the sender's points, and a polite closing.

ORIGINAL SUBJECT:
%s

ORIGINAL BODY:
%s

Respond only with the email body text (no JSON).`, role, subject, body)
}

func eventPrompt(subject, body string) string {
	return fmt.Sprintf(`Extract event information (if any) from the email. Output JSON with keys: title, start (ISO or best guess), end (ISO or best guess or null), location, description, priority (low|medium|high), usability (0-1). If no event, return {"event": null}.

SUBJECT:
%s

BODY:
%s

Respond only with JSON.`, subject, body)
}
