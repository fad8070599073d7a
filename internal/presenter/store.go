// Package presenter owns the client-side analysis state and decides what is
// shown for a response: the block notice, the crisis alert, or the full analysis.
package presenter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"relationshipai/apps/backend/internal/analysis"
)

type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateBlocked   State = "blocked"
	StateEscalated State = "escalated"
	StateDisplayed State = "displayed"
	StateFailed    State = "failed"
)

type Panel string

const (
	PanelEmotion      Panel = "emotion"
	PanelContext      Panel = "context"
	PanelMessages     Panel = "messages"
	PanelActions      Panel = "actions"
	PanelIdentity     Panel = "identity"
	PanelSafetyNotice Panel = "safety_notice"
)

type Level string

const (
	LevelSuccess  Level = "success"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

const (
	defaultNoticeDuration    = 4 * time.Second
	escalationNoticeDuration = 10 * time.Second

	msgEmptyInput    = "Please enter a message to analyze"
	msgBlockedReason = "This message contains concerning content"
	msgCrisis        = "Please seek immediate help from a crisis resource"
	msgComplete      = "Analysis complete!"
	msgFailed        = "Failed to analyze message. Please try again."
)

var (
	ErrBusy       = errors.New("an analysis is already loading")
	ErrNotLoading = errors.New("no analysis is loading")
)

// Notice is a transient toast shown to the user.
type Notice struct {
	Level       Level
	Title       string
	Description string
	Duration    time.Duration
}

// View is an immutable snapshot handed to renderers.
type View struct {
	State    State
	Loading  bool
	Analysis *analysis.Response
	Panels   []Panel
	Notice   *Notice
}

// Submitter is the Request Builder as seen by the store.
type Submitter interface {
	Submit(ctx context.Context, req analysis.Request) (analysis.Response, error)
}

// Store is the single owner of {analysis, isLoading}. All changes go through
// its transition methods; subscribers get a View after each one.
type Store struct {
	mu          sync.Mutex
	state       State
	analysis    *analysis.Response
	notice      *Notice
	logger      *zap.Logger
	subscribers []func(View)
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{state: StateIdle, logger: logger}
}

// Subscribe registers fn to receive a View after every transition.
func (s *Store) Subscribe(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Begin moves to Loading. A second Begin while loading returns ErrBusy.
func (s *Store) Begin() error {
	return s.transition(func() error {
		if s.state == StateLoading {
			return ErrBusy
		}
		s.state = StateLoading
		s.analysis = nil
		s.notice = nil
		return nil
	})
}

// Resolve applies a response: blocked wins over escalation, which wins over display.
func (s *Store) Resolve(resp analysis.Response) error {
	return s.transition(func() error {
		if s.state != StateLoading {
			return ErrNotLoading
		}
		switch {
		case resp.Safety.Blocked:
			s.state = StateBlocked
			s.analysis = nil
			reason := strings.TrimSpace(resp.Safety.SafeReason)
			if reason == "" {
				reason = msgBlockedReason
			}
			s.notice = &Notice{Level: LevelError, Title: reason, Duration: defaultNoticeDuration}
		case resp.Safety.Escalation:
			s.state = StateEscalated
			s.analysis = nil
			s.notice = &Notice{
				Level:       LevelCritical,
				Title:       msgCrisis,
				Description: resp.Safety.SafeAlternative,
				Duration:    escalationNoticeDuration,
			}
		default:
			s.state = StateDisplayed
			r := resp
			s.analysis = &r
			s.notice = &Notice{Level: LevelSuccess, Title: msgComplete, Duration: defaultNoticeDuration}
		}
		return nil
	})
}

// Fail moves to Failed. The user sees a generic message; the kind is logged.
func (s *Store) Fail(err error) error {
	return s.transition(func() error {
		if s.state != StateLoading {
			return ErrNotLoading
		}
		s.logger.Error("error analyzing message",
			zap.String("kind", string(analysis.KindOf(err))),
			zap.Error(err),
		)
		s.state = StateFailed
		s.analysis = nil
		s.notice = &Notice{Level: LevelError, Title: msgFailed, Duration: defaultNoticeDuration}
		return nil
	})
}

func (s *Store) Reset() {
	_ = s.transition(func() error {
		s.state = StateIdle
		s.analysis = nil
		s.notice = nil
		return nil
	})
}

// Submit drives one full cycle. Blank input only raises a notice and leaves
// the state untouched, matching the builder's pre-dispatch check.
func (s *Store) Submit(ctx context.Context, submitter Submitter, req analysis.Request) (View, error) {
	if strings.TrimSpace(req.Text) == "" {
		_ = s.transition(func() error {
			s.notice = &Notice{Level: LevelError, Title: msgEmptyInput, Duration: defaultNoticeDuration}
			return nil
		})
		return s.View(), &analysis.Error{Kind: analysis.KindValidation, Message: msgEmptyInput}
	}
	if err := s.Begin(); err != nil {
		return s.View(), err
	}

	resp, err := submitter.Submit(ctx, req)
	if err != nil {
		_ = s.Fail(err)
		return s.View(), err
	}
	_ = s.Resolve(resp)
	return s.View(), nil
}

func (s *Store) transition(apply func() error) error {
	s.mu.Lock()
	if err := apply(); err != nil {
		s.mu.Unlock()
		return err
	}
	view := s.viewLocked()
	subscribers := append([]func(View){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(view)
	}
	return nil
}

func (s *Store) viewLocked() View {
	view := View{
		State:   s.state,
		Loading: s.state == StateLoading,
	}
	if s.notice != nil {
		n := *s.notice
		view.Notice = &n
	}
	if s.state == StateDisplayed && s.analysis != nil {
		r := *s.analysis
		r.Actions = append([]analysis.Action(nil), s.analysis.Actions...)
		view.Analysis = &r
		view.Panels = panelsFor(r)
	}
	return view
}

func panelsFor(resp analysis.Response) []Panel {
	panels := []Panel{PanelEmotion, PanelContext, PanelMessages, PanelActions, PanelIdentity}
	if resp.Context.RiskLevel == analysis.RiskHigh {
		panels = append(panels, PanelSafetyNotice)
	}
	return panels
}
