package presenter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/oracle"
)

type stubSubmitter struct {
	resp  analysis.Response
	err   error
	calls int
}

func (s *stubSubmitter) Submit(context.Context, analysis.Request) (analysis.Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestStoreDisplayedLowRisk(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Begin())
	assert.True(t, store.View().Loading)

	require.NoError(t, store.Resolve(oracle.MockResponse()))
	view := store.View()

	assert.Equal(t, StateDisplayed, view.State)
	assert.False(t, view.Loading)
	require.NotNil(t, view.Analysis)
	assert.Equal(t, []Panel{PanelEmotion, PanelContext, PanelMessages, PanelActions, PanelIdentity}, view.Panels)
	assert.NotContains(t, view.Panels, PanelSafetyNotice)
	require.NotNil(t, view.Notice)
	assert.Equal(t, LevelSuccess, view.Notice.Level)
}

func TestStoreHighRiskAddsSafetyNotice(t *testing.T) {
	resp := oracle.MockResponse()
	resp.Context.RiskLevel = analysis.RiskHigh

	store := NewStore(nil)
	require.NoError(t, store.Begin())
	require.NoError(t, store.Resolve(resp))
	view := store.View()

	assert.Equal(t, StateDisplayed, view.State)
	assert.Contains(t, view.Panels, PanelSafetyNotice)
	assert.Contains(t, view.Panels, PanelMessages)
}

func TestStoreBlockedShowsOnlyReason(t *testing.T) {
	resp := oracle.MockResponse()
	resp.Context.RiskLevel = analysis.RiskHigh
	resp.Safety = analysis.Safety{Blocked: true, Escalation: true, SafeReason: "contains coercive language"}

	store := NewStore(nil)
	require.NoError(t, store.Begin())
	require.NoError(t, store.Resolve(resp))
	view := store.View()

	assert.Equal(t, StateBlocked, view.State)
	assert.Nil(t, view.Analysis)
	assert.Empty(t, view.Panels)
	require.NotNil(t, view.Notice)
	assert.Equal(t, "contains coercive language", view.Notice.Title)
	assert.Equal(t, LevelError, view.Notice.Level)
}

func TestStoreBlockedWithoutReasonUsesFallback(t *testing.T) {
	resp := oracle.MockResponse()
	resp.Safety = analysis.Safety{Blocked: true}

	store := NewStore(nil)
	require.NoError(t, store.Begin())
	require.NoError(t, store.Resolve(resp))

	assert.Equal(t, msgBlockedReason, store.View().Notice.Title)
}

func TestStoreEscalationShowsCrisisAlert(t *testing.T) {
	resp := oracle.MockResponse()
	resp.Safety = analysis.Safety{Escalation: true, SafeAlternative: "Call 988 or your local emergency number."}

	store := NewStore(nil)
	require.NoError(t, store.Begin())
	require.NoError(t, store.Resolve(resp))
	view := store.View()

	assert.Equal(t, StateEscalated, view.State)
	assert.Nil(t, view.Analysis)
	assert.Empty(t, view.Panels)
	require.NotNil(t, view.Notice)
	assert.Equal(t, LevelCritical, view.Notice.Level)
	assert.Equal(t, msgCrisis, view.Notice.Title)
	assert.Equal(t, "Call 988 or your local emergency number.", view.Notice.Description)
	assert.Equal(t, escalationNoticeDuration, view.Notice.Duration)
	assert.Greater(t, view.Notice.Duration, defaultNoticeDuration)
}

func TestStoreFailShowsGenericMessage(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Begin())
	require.NoError(t, store.Fail(&analysis.Error{Kind: analysis.KindUpstreamBilling, Message: "oracle billing error", UpstreamStatus: 402}))
	view := store.View()

	assert.Equal(t, StateFailed, view.State)
	assert.Nil(t, view.Analysis)
	require.NotNil(t, view.Notice)
	assert.Equal(t, msgFailed, view.Notice.Title)
	assert.NotContains(t, view.Notice.Title, "billing")
}

func TestStoreTransitionsGuarded(t *testing.T) {
	store := NewStore(nil)

	assert.ErrorIs(t, store.Resolve(oracle.MockResponse()), ErrNotLoading)
	assert.ErrorIs(t, store.Fail(errors.New("x")), ErrNotLoading)

	require.NoError(t, store.Begin())
	assert.ErrorIs(t, store.Begin(), ErrBusy)

	store.Reset()
	assert.Equal(t, StateIdle, store.View().State)
	assert.NoError(t, store.Begin())
}

func TestStoreSubmitBlankInput(t *testing.T) {
	sub := &stubSubmitter{resp: oracle.MockResponse()}
	store := NewStore(nil)

	view, err := store.Submit(context.Background(), sub, analysis.Request{Text: "   "})

	assert.True(t, errors.Is(err, analysis.ErrValidation))
	assert.Zero(t, sub.calls)
	assert.Equal(t, StateIdle, view.State)
	require.NotNil(t, view.Notice)
	assert.Equal(t, msgEmptyInput, view.Notice.Title)
}

func TestStoreSubmitNotifiesSubscribers(t *testing.T) {
	sub := &stubSubmitter{resp: oracle.MockResponse()}
	store := NewStore(nil)
	var states []State
	store.Subscribe(func(v View) { states = append(states, v.State) })

	_, err := store.Submit(context.Background(), sub, analysis.Request{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, []State{StateLoading, StateDisplayed}, states)
}

func TestStoreSubmitError(t *testing.T) {
	sub := &stubSubmitter{err: &analysis.Error{Kind: analysis.KindUpstreamRateLimited}}
	store := NewStore(nil)

	view, err := store.Submit(context.Background(), sub, analysis.Request{Text: "hello"})

	assert.True(t, errors.Is(err, analysis.ErrRateLimited))
	assert.Equal(t, StateFailed, view.State)
}

func TestViewIsASnapshot(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, store.Begin())
	require.NoError(t, store.Resolve(oracle.MockResponse()))

	view := store.View()
	view.Analysis.Actions[0].Description = "changed"
	view.Notice.Title = "changed"

	fresh := store.View()
	assert.NotEqual(t, "changed", fresh.Analysis.Actions[0].Description)
	assert.NotEqual(t, "changed", fresh.Notice.Title)
}
