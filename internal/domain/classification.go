package domain

// Texts written to a ticket when no AI analysis is available.
const (
	SummaryUnavailable = "AI analysis unavailable or failed."
	NotesManualReview  = "The AI could not complete analysis. Manual review required."
)

// ClassificationResult is the raw output of the external classifier.
// It is never persisted directly; it always goes through normalization first.
type ClassificationResult struct {
	Summary  string   `json:"summary"`
	Priority string   `json:"priority"`
	Notes    string   `json:"notes"`
	Skills   []string `json:"skills"`
}

// NormalizedResult is classification data that is safe to persist on a ticket.
type NormalizedResult struct {
	Summary  string   `json:"summary"`
	Priority Priority `json:"priority"`
	Notes    string   `json:"notes"`
	Skills   []string `json:"skills"`
}
