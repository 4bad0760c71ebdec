package activities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/llm"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
)

func TestClassifyTicket_Success(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	cls := &fakeClassifier{classification: &llm.Classification{
		Result: domain.ClassificationResult{
			Summary:  "Printer paper jam issue",
			Priority: "high",
			Notes:    "Check the rollers.",
			Skills:   []string{"hardware"},
		},
		Provider:     "fake",
		Model:        "fake-model",
		InputTokens:  120,
		OutputTokens: 40,
		Attempts:     1,
	}}
	metrics := observability.NewMetrics("act_classify_ok")
	act := NewClassifyActivities(cls, metrics)
	env.RegisterActivity(act.ClassifyTicket)

	val, err := env.ExecuteActivity(act.ClassifyTicket, ClassifyInput{
		TicketID:    uuid.New(),
		Title:       "Printer jam",
		Description: "Paper jam persists after restart",
	})
	require.NoError(t, err)

	var out ClassifyOutput
	require.NoError(t, val.Get(&out))
	require.NotNil(t, out.Result)
	assert.Nil(t, out.Failure)
	assert.Equal(t, "Printer paper jam issue", out.Result.Summary)
	assert.Equal(t, []string{"hardware"}, out.Result.Skills)
	assert.Equal(t, "fake", out.Provider)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ClassificationsTotal.WithLabelValues("fake", "success")))
	assert.Equal(t, float64(120), testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("fake", "fake-model", "input")))
}

func TestClassifyTicket_FailureIsData(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	cls := &fakeClassifier{failure: &llm.ClassifierFailure{Kind: llm.FailureTimeout, Message: "deadline exceeded", Attempts: 3}}
	metrics := observability.NewMetrics("act_classify_fail")
	act := NewClassifyActivities(cls, metrics)
	env.RegisterActivity(act.ClassifyTicket)

	val, err := env.ExecuteActivity(act.ClassifyTicket, ClassifyInput{TicketID: uuid.New(), Title: "t", Description: "d"})
	require.NoError(t, err)

	var out ClassifyOutput
	require.NoError(t, val.Get(&out))
	assert.Nil(t, out.Result)
	require.NotNil(t, out.Failure)
	assert.Equal(t, llm.FailureTimeout, out.Failure.Kind)
	assert.Equal(t, 3, out.Failure.Attempts)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LLMRequestsFailed.WithLabelValues("fake", "fake-model", "timeout")))
}

func TestClassifyTicket_NoClassifier(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	act := NewClassifyActivities(nil, nil)
	env.RegisterActivity(act.ClassifyTicket)

	val, err := env.ExecuteActivity(act.ClassifyTicket, ClassifyInput{TicketID: uuid.New(), Title: "t", Description: "d"})
	require.NoError(t, err)

	var out ClassifyOutput
	require.NoError(t, val.Get(&out))
	require.NotNil(t, out.Failure)
	assert.Equal(t, llm.FailureAuth, out.Failure.Kind)
}
