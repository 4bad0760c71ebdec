package triage

import (
	"sort"
	"strings"
	"unicode"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

type skillRule struct {
	skill    string
	keywords []string
}

// skillRules maps keywords found in a ticket to the skill needed to handle it.
var skillRules = []skillRule{
	{skill: "hardware", keywords: []string{"printer", "paper jam", "keyboard", "mouse", "monitor", "laptop", "hardware", "battery"}},
	{skill: "networking", keywords: []string{"network", "wifi", "wi-fi", "vpn", "dns", "router", "connection", "latency"}},
	{skill: "databases", keywords: []string{"database", "sql", "postgres", "mysql", "query", "deadlock", "migration"}},
	{skill: "authentication", keywords: []string{"password", "login", "log in", "sign in", "2fa", "mfa", "locked out", "sso"}},
	{skill: "email", keywords: []string{"email", "e-mail", "outlook", "inbox", "smtp", "mailbox"}},
	{skill: "billing", keywords: []string{"invoice", "billing", "refund", "payment", "charge", "subscription"}},
	{skill: "frontend", keywords: []string{"css", "javascript", "browser", "page layout", "button", "ui"}},
	{skill: "backend", keywords: []string{"api", "server error", "500", "timeout", "endpoint", "stack trace"}},
	{skill: "security", keywords: []string{"phishing", "malware", "virus", "breach", "suspicious", "ransomware"}},
}

// highPriorityKeywords mark outages and blocking failures.
var highPriorityKeywords = []string{
	"outage", "is down", "went down", "urgent", "critical", "cannot access", "can't access",
	"not working", "blocked", "blocking", "data loss", "breach", "production",
}

// lowPriorityKeywords mark requests that can wait.
var lowPriorityKeywords = []string{
	"question", "how do i", "feature request", "suggestion", "nice to have", "cosmetic", "typo",
}

// FallbackClassify derives a classification from fixed keyword tables.
// The same input always yields the same output. Summary and notes stay at
// their sentinel values since no analysis was performed.
func FallbackClassify(title, description string) domain.NormalizedResult {
	text := wordText(title + "\n" + description)

	skills := make([]string, 0, 2)
	for _, rule := range skillRules {
		if containsAny(text, rule.keywords) {
			skills = append(skills, rule.skill)
		}
	}
	sort.Strings(skills)

	priority := domain.DefaultPriority
	switch {
	case containsAny(text, highPriorityKeywords):
		priority = domain.PriorityHigh
	case containsAny(text, lowPriorityKeywords):
		priority = domain.PriorityLow
	}

	return domain.NormalizedResult{
		Summary:  domain.SummaryUnavailable,
		Priority: priority,
		Notes:    domain.NotesManualReview,
		Skills:   skills,
	}
}

// wordText lower-cases s and reduces it to its words separated by single
// spaces, with a space at each end, so keywords match whole words only.
func wordText(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

// containsAny reports whether text, as produced by wordText, contains any
// keyword as a whole word or phrase. A trailing "s" is accepted for plurals.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		phrase := strings.TrimSpace(wordText(kw))
		if phrase == "" {
			continue
		}
		if strings.Contains(text, " "+phrase+" ") || strings.Contains(text, " "+phrase+"s ") {
			return true
		}
	}
	return false
}
