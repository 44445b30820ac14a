package textgen

import (
	"fmt"
	"strings"
)

// Kind selects the completion profile for a request.
type Kind int

const (
	KindLetter Kind = iota
	KindSummary
)

const (
	letterSystemPrompt  = "You write formal leave application letters for a nursing college. Reply with the letter text only."
	summarySystemPrompt = "You summarise leave requests for busy reviewers. Reply with exactly one short sentence."
)

// LetterPrompt asks for a formal letter covering the given leave.
func LetterPrompt(leaveType string, days int, reason string) string {
	return fmt.Sprintf(
		"Write a formal and professional leave application letter for %q leave for %d day(s). Key points: %q. "+
			"Address it to the reviewing authority, keep it polite and concise, and leave the signature as a placeholder.",
		leaveType, days, strings.TrimSpace(reason))
}

// SummaryPrompt asks for a one-sentence summary of reason, framed by requestContext.
func SummaryPrompt(reason, requestContext string) string {
	return fmt.Sprintf("Summarize this leave reason in ONE short sentence for a %s: %q.",
		strings.TrimSpace(requestContext), strings.TrimSpace(reason))
}

func systemPrompt(kind Kind) string {
	if kind == KindSummary {
		return summarySystemPrompt
	}
	return letterSystemPrompt
}
