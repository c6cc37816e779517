package rag

import "strings"

// QueryKind is the route a question takes through the answer pipeline.
type QueryKind int

const (
	General QueryKind = iota
	Lead
)

func (k QueryKind) String() string {
	if k == Lead {
		return "lead"
	}
	return "general"
}

// leadVocabulary is matched as case-insensitive substrings.
var leadVocabulary = []string{
	"lead", "leads", "status", "customer", "prospect",
	"enquiry", "inquiry", "application", "student id",
	"registration", "admission",
}

// Classify routes a question to the lead lookup when it mentions a lead term
// and contains a digit. Questions like "admission fees for 2025" also match;
// that false positive is accepted.
func Classify(question string) QueryKind {
	if hasLeadTerm(question) && hasDigit(question) {
		return Lead
	}
	return General
}

func hasLeadTerm(s string) bool {
	lower := strings.ToLower(s)
	for _, term := range leadVocabulary {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
