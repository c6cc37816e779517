package rag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/markdave123-py/AmityBot/internal/core"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// NoLeadIDMessage answers lead questions that carry no recognizable id.
const NoLeadIDMessage = "I couldn't find a lead ID in your question. Please provide a lead ID like 'lead #123' or just '123'."

// leadIDPatterns run over the lower-cased question; the first match wins.
var leadIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`lead\s*#?(\d+)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`id\s*#?(\d+)`),
	regexp.MustCompile(`(\d{3,})`),
}

// ExtractLeadID finds a lead identifier in free text.
func ExtractLeadID(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, re := range leadIDPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// LeadNotFoundMessage is shown when the CRM has no record for id.
func LeadNotFoundMessage(id string) string {
	return fmt.Sprintf("No lead found with ID: %s", id)
}

// FormatLead renders a lead as markdown. Empty optional fields are omitted.
func FormatLead(l *models.LeadRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Lead Information for #%s**\n\n", l.ID)
	fmt.Fprintf(&b, "**Name:** %s\n", orNA(l.Name))
	fmt.Fprintf(&b, "**Status:** %s\n", orNA(l.Status))

	optional := []struct{ label, value string }{
		{"Email", l.Email},
		{"Phone", l.Phone},
		{"Course Interest", l.CourseInterest},
		{"Assigned Counselor", l.AssignedCounselor},
		{"Last Contact", l.LastContact},
		{"Notes", l.Notes},
	}
	for _, f := range optional {
		if f.value != "" {
			fmt.Fprintf(&b, "**%s:** %s\n", f.label, f.value)
		}
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// LeadLookup answers lead questions from the CRM.
type LeadLookup struct {
	store core.LeadStore
}

func NewLeadLookup(store core.LeadStore) *LeadLookup {
	return &LeadLookup{store: store}
}

// Answer returns user-facing text. Missing ids and unknown leads are answers,
// not errors; only store failures are returned as errors.
func (l *LeadLookup) Answer(ctx context.Context, question string) (string, error) {
	id, ok := ExtractLeadID(question)
	if !ok {
		return NoLeadIDMessage, nil
	}

	lead, err := l.store.GetLead(ctx, id)
	if errors.Is(err, core.ErrLeadNotFound) {
		return LeadNotFoundMessage(id), nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup lead %s: %w", id, err)
	}
	return FormatLead(lead), nil
}
