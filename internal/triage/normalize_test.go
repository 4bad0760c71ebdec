package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

func TestNormalize(t *testing.T) {
	t.Run("nil input yields sentinels", func(t *testing.T) {
		got, usedFallback := Normalize(nil)

		assert.True(t, usedFallback)
		assert.Equal(t, domain.SummaryUnavailable, got.Summary)
		assert.Equal(t, domain.NotesManualReview, got.Notes)
		assert.Equal(t, domain.PriorityMedium, got.Priority)
		assert.NotNil(t, got.Skills)
		assert.Empty(t, got.Skills)
	})

	t.Run("complete result passes through", func(t *testing.T) {
		got, usedFallback := Normalize(&domain.ClassificationResult{
			Summary:  "Printer paper jam issue",
			Priority: "HIGH",
			Notes:    "Check the rollers.",
			Skills:   []string{" hardware ", "", "printers"},
		})

		assert.False(t, usedFallback)
		assert.Equal(t, "Printer paper jam issue", got.Summary)
		assert.Equal(t, domain.PriorityHigh, got.Priority)
		assert.Equal(t, "Check the rollers.", got.Notes)
		assert.Equal(t, []string{"hardware", "printers"}, got.Skills)
	})

	t.Run("empty summary counts as fallback", func(t *testing.T) {
		got, usedFallback := Normalize(&domain.ClassificationResult{Summary: "   ", Priority: "low"})

		assert.True(t, usedFallback)
		assert.Equal(t, domain.SummaryUnavailable, got.Summary)
		assert.Equal(t, domain.PriorityLow, got.Priority)
	})

	t.Run("missing notes use manual review sentinel", func(t *testing.T) {
		got, usedFallback := Normalize(&domain.ClassificationResult{Summary: "s", Priority: "low"})

		assert.False(t, usedFallback)
		assert.Equal(t, domain.NotesManualReview, got.Notes)
	})

	t.Run("nil skills become empty", func(t *testing.T) {
		got, _ := Normalize(&domain.ClassificationResult{Summary: "s"})
		assert.NotNil(t, got.Skills)
		assert.Empty(t, got.Skills)
	})
}

func TestNormalize_UnrecognizedPriorityIsMedium(t *testing.T) {
	for _, raw := range []string{"", "urgent", "P1", "highest", "none", "  ", "méduim"} {
		t.Run(raw, func(t *testing.T) {
			got, _ := Normalize(&domain.ClassificationResult{Summary: "s", Priority: raw})
			assert.Equal(t, domain.PriorityMedium, got.Priority)
		})
	}
}

func TestNormalizeSkills(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: []string{}},
		{name: "trims and drops empty", input: []string{" a ", "", "  ", "b"}, expected: []string{"a", "b"}},
		{name: "case-insensitive duplicates keep first", input: []string{"React", "react", "Node"}, expected: []string{"React", "Node"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSkills(tt.input))
		})
	}
}
