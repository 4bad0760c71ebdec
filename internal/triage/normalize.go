// Package triage holds the pure decision logic of ticket triage: classifier output
// normalization, the keyword fallback classifier, and handler assignment.
package triage

import (
	"strings"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// Normalize makes raw classifier output safe to persist. It never fails.
// A nil raw value stands for a total classifier failure.
//
// The returned flag is true when the result carries no usable AI summary,
// meaning sentinel text was substituted for it.
func Normalize(raw *domain.ClassificationResult) (domain.NormalizedResult, bool) {
	if raw == nil {
		return domain.NormalizedResult{
			Summary:  domain.SummaryUnavailable,
			Priority: domain.DefaultPriority,
			Notes:    domain.NotesManualReview,
			Skills:   []string{},
		}, true
	}

	out := domain.NormalizedResult{
		Summary: strings.TrimSpace(raw.Summary),
		Notes:   strings.TrimSpace(raw.Notes),
		Skills:  NormalizeSkills(raw.Skills),
	}
	out.Priority, _ = domain.ParsePriority(raw.Priority)

	usedFallback := false
	if out.Summary == "" {
		out.Summary = domain.SummaryUnavailable
		usedFallback = true
	}
	if out.Notes == "" {
		out.Notes = domain.NotesManualReview
	}
	return out, usedFallback
}

// NormalizeSkills trims entries, drops empty ones and duplicates, and keeps first-seen order.
// Duplicates are detected case-insensitively.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
