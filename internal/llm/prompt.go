package llm

import "strings"

const classificationSystemPrompt = `You are a helpdesk ticket triage agent.
Reply with one strict JSON object and nothing else: no headers, no prose, no markdown fences.`

// BuildClassificationPrompt returns the system and user prompts for classifying a ticket.
func BuildClassificationPrompt(title, description string) (string, string) {
	var b strings.Builder

	b.WriteString("Analyze the support ticket below and return a JSON object with exactly these fields:\n\n")
	b.WriteString("- summary: a short 1-2 sentence summary of the issue.\n")
	b.WriteString("- priority: one of \"low\", \"medium\", or \"high\".\n")
	b.WriteString("- notes: a detailed technical explanation a moderator can use to resolve the issue, ")
	b.WriteString("including useful external resources where possible.\n")
	b.WriteString("- skills: an array of skills needed to resolve the issue (e.g. [\"networking\", \"postgres\"]).\n\n")
	b.WriteString("Example:\n")
	b.WriteString(`{"summary": "Short summary", "priority": "high", "notes": "Steps to try...", "skills": ["hardware"]}`)
	b.WriteString("\n\n---\n\nTicket:\n\n")
	b.WriteString("- Title: ")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\n- Description: ")
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n")

	return classificationSystemPrompt, b.String()
}
