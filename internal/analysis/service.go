package analysis

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"relationshipai/apps/backend/internal/logging"
)

// Temperature is the fixed sampling temperature for every oracle call.
const Temperature = 0.7

// Completion is a single chat-completion call: one system turn, one user turn.
type Completion struct {
	Model       string
	System      string
	User        string
	Temperature float64
}

// Oracle is the external model. Implementations return *StatusError for
// non-2xx replies and may return *Error for failures they classify themselves.
type Oracle interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

type Service struct {
	oracle Oracle
	model  string
	logger *zap.Logger
}

func NewService(oracle Oracle, model string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		oracle: oracle,
		model:  strings.TrimSpace(model),
		logger: logger,
	}
}

// Analyze runs one request through the oracle and returns a schema-valid Response.
// Every returned error is an *Error.
func (s *Service) Analyze(ctx context.Context, req Request) (Response, error) {
	if s.oracle == nil {
		return Response{}, &Error{Kind: KindConfig, Message: "oracle is not configured"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return Response{}, newValidationError("")
	}

	s.logger.Info("analyzing message",
		zap.Int("text_len", len(req.Text)),
		zap.Bool("has_snippets", strings.TrimSpace(req.ChatSnippets) != ""),
		zap.Bool("has_meta", !normalizeMeta(req.Meta).IsZero()),
	)

	prompt := BuildPrompt(req)
	content, err := s.oracle.Complete(ctx, Completion{
		Model:       s.model,
		System:      prompt.System,
		User:        prompt.User,
		Temperature: Temperature,
	})
	if err != nil {
		classified := classifyOracleError(err)
		s.logger.Error("AI gateway error",
			zap.String("kind", string(classified.Kind)),
			zap.Int("status", classified.UpstreamStatus),
			zap.String("body", logging.Truncate(classified.Body, 1200)),
			zap.Error(err),
		)
		return Response{}, classified
	}
	if strings.TrimSpace(content) == "" {
		s.logger.Error("no content in AI response")
		return Response{}, &Error{Kind: KindUpstream, Message: "no content in AI response"}
	}

	resp, err := ParseResponse(content)
	if err != nil {
		s.logger.Error("AI response failed validation",
			zap.Error(err),
			zap.String("raw", logging.Truncate(content, 1200)),
		)
		return Response{}, err
	}

	s.logger.Info("analysis complete",
		zap.String("emotion", resp.Emotion.PrimaryEmotion),
		zap.String("risk_level", resp.Context.RiskLevel),
		zap.Bool("blocked", resp.Safety.Blocked),
		zap.Bool("escalation", resp.Safety.Escalation),
	)
	return resp, nil
}

func classifyOracleError(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		e := FromStatus(statusErr.StatusCode, statusErr.Body)
		e.Err = err
		return e
	}
	return &Error{Kind: KindUpstream, Message: "oracle request failed", Err: err}
}
