package triage

import (
	"fmt"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// FallbackMode selects what happens when the external classifier yields nothing usable.
type FallbackMode string

const (
	// FallbackSentinel writes default priority, no skills, and sentinel summary and notes.
	FallbackSentinel FallbackMode = "sentinel"
	// FallbackKeyword runs FallbackClassify over the ticket text.
	FallbackKeyword FallbackMode = "keyword"
)

// ParseFallbackMode validates a configured fallback mode.
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch FallbackMode(s) {
	case FallbackSentinel, FallbackKeyword:
		return FallbackMode(s), nil
	case "":
		return FallbackSentinel, nil
	default:
		return "", fmt.Errorf("unknown fallback mode %q: %w", s, domain.ErrInvalidInput)
	}
}

// Outcome is the classification data and status a triage run writes to a ticket.
type Outcome struct {
	Result       domain.NormalizedResult `json:"result"`
	Status       domain.TicketStatus     `json:"status"`
	UsedFallback bool                    `json:"used_fallback"`
}

// Resolve turns classifier output into the values persisted on a ticket.
// Status is in_progress only when the external classifier produced a usable summary;
// every fallback path leaves the ticket open for a human.
func Resolve(raw *domain.ClassificationResult, mode FallbackMode, title, description string) Outcome {
	result, usedFallback := Normalize(raw)
	if !usedFallback {
		return Outcome{Result: result, Status: domain.TicketStatusInProgress}
	}

	if mode == FallbackKeyword {
		result = FallbackClassify(title, description)
	}
	return Outcome{Result: result, Status: domain.TicketStatusOpen, UsedFallback: true}
}
