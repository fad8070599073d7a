package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRejectsBlankTextWithoutCallingOracle(t *testing.T) {
	oracle := &fakeOracle{reply: sampleReply}
	svc := NewService(oracle, "google/gemini-2.5-flash", nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Analyze(context.Background(), Request{Text: text})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))

		var e *Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
	}
	assert.Zero(t, oracle.calls)
}

func TestAnalyzeWithoutOracleIsConfigError(t *testing.T) {
	svc := NewService(nil, "m", nil)

	_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestAnalyzeSendsFixedTemperatureAndModel(t *testing.T) {
	oracle := &fakeOracle{reply: sampleReply}
	svc := NewService(oracle, " google/gemini-2.5-flash ", nil)

	_, err := svc.Analyze(context.Background(), Request{
		Text: "He forgot our anniversary again and I feel invisible",
		Meta: UserMeta{RelationshipRole: "spouse"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, "google/gemini-2.5-flash", oracle.last.Model)
	assert.Equal(t, 0.7, oracle.last.Temperature)
	assert.Equal(t, systemPrompt, oracle.last.System)
	assert.Contains(t, oracle.last.User, `USER INFO: {"relationship_role":"spouse"}`)
}

func TestAnalyzeMapsUpstreamStatus(t *testing.T) {
	cases := []struct {
		status     int
		sentinel   error
		wantStatus int
		wantPublic string
	}{
		{status: http.StatusTooManyRequests, sentinel: ErrRateLimited, wantStatus: 429, wantPublic: "Rate limit exceeded. Please try again later."},
		{status: http.StatusPaymentRequired, sentinel: ErrBilling, wantStatus: 402, wantPublic: "AI usage credits depleted. Please add funds."},
		{status: http.StatusServiceUnavailable, sentinel: ErrUpstream, wantStatus: 500, wantPublic: "AI gateway error: 503"},
		{status: http.StatusUnauthorized, sentinel: ErrUpstream, wantStatus: 500, wantPublic: "AI gateway error: 401"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			oracle := &fakeOracle{err: &StatusError{StatusCode: tc.status, Body: `{"error":"nope"}`}}
			svc := NewService(oracle, "m", nil)

			_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.sentinel))

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tc.wantStatus, e.HTTPStatus())
			assert.Equal(t, tc.status, e.UpstreamStatus)
			assert.Equal(t, `{"error":"nope"}`, e.Body)
			assert.Equal(t, tc.wantPublic, e.PublicMessage())
		})
	}
}

func TestAnalyzeTransportFailureIsUpstreamError(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("connection refused")}
	svc := NewService(oracle, "m", nil)

	_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.ErrorContains(t, err, "connection refused")
}

func TestAnalyzeEmptyCompletionIsUpstreamError(t *testing.T) {
	svc := NewService(&fakeOracle{reply: "  "}, "m", nil)

	_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestAnalyzeUnparseableCompletionIsParseError(t *testing.T) {
	svc := NewService(&fakeOracle{reply: "```json\n{\"emotion\": \n```"}, "m", nil)

	_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
}

func TestAnalyzeIncompleteObjectIsParseError(t *testing.T) {
	svc := NewService(&fakeOracle{reply: `{"emotion":{"primary_emotion":"hurt"}}`}, "m", nil)

	_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
	assert.True(t, errors.Is(err, ErrParse))
}

func TestAnalyzeFencedAndUnfencedAgree(t *testing.T) {
	plain, err := NewService(&fakeOracle{reply: sampleReply}, "m", nil).
		Analyze(context.Background(), Request{Text: "hello"})
	require.NoError(t, err)

	fenced, err := NewService(&fakeOracle{reply: "```json\n" + sampleReply + "\n```"}, "m", nil).
		Analyze(context.Background(), Request{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, plain, fenced)
}

// rotatingOracle returns a different valid reply on each call, standing in for a
// non-deterministic model.
type rotatingOracle struct {
	replies []string
	n       int
}

func (r *rotatingOracle) Complete(context.Context, Completion) (string, error) {
	reply := r.replies[r.n%len(r.replies)]
	r.n++
	return reply, nil
}

func TestAnalyzeRepeatedCallsConformToSchema(t *testing.T) {
	oracle := &rotatingOracle{replies: []string{
		sampleReply,
		"```json\n" + sampleReply + "\n```",
		`{
			"emotion": {"primary_emotion": "stress", "secondary_emotion": "", "intensity": 0.3, "explanation": "e"},
			"context": {"situation": "s", "cause": "c", "user_goal": "venting", "risk_level": "medium", "topic": "expectations", "summary": "s"},
			"safety": {"blocked": false, "safe_reason": "", "safe_alternative": "", "escalation": false},
			"messages": {"soft_message": "a", "honest_message": "b", "repair_message": "c"},
			"actions": [{"action_type": "healing_activity", "description": "d"}],
			"identity": {"identity_shift_message": "i", "self_growth_affirmation": "a"}
		}`,
	}}
	svc := NewService(oracle, "m", nil)

	for i := 0; i < 6; i++ {
		resp, err := svc.Analyze(context.Background(), Request{Text: "same input every time"})
		require.NoError(t, err)
		assert.Contains(t, validPrimaryEmotions, resp.Emotion.PrimaryEmotion)
		assert.Contains(t, validRiskLevels, resp.Context.RiskLevel)
		assert.GreaterOrEqual(t, resp.Emotion.Intensity, 0.0)
		assert.LessOrEqual(t, resp.Emotion.Intensity, 1.0)
		for _, action := range resp.Actions {
			assert.Contains(t, validActionTypes, action.ActionType)
		}
	}
}

func TestAnalyzePassesThroughClassifiedOracleErrors(t *testing.T) {
	svc := NewService(&fakeOracle{err: &Error{Kind: KindConfig, Message: "missing key"}}, "m", nil)

	_, err := svc.Analyze(context.Background(), Request{Text: "hello"})
	assert.True(t, errors.Is(err, ErrConfig))
	assert.False(t, errors.Is(err, ErrUpstream))
}
