package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"relationshipai/apps/backend/internal/analysis"
)

// maxRequestBytes bounds the analyze-message body, chat snippets included.
const maxRequestBytes = 64 << 10

type analyzeMessageRequest struct {
	UserText     string             `json:"userText"`
	ChatSnippets string             `json:"chatSnippets"`
	UserMeta     *analysis.UserMeta `json:"userMeta"`
}

func (r analyzeMessageRequest) toAnalysisRequest() analysis.Request {
	req := analysis.Request{
		Text:         r.UserText,
		ChatSnippets: r.ChatSnippets,
	}
	if r.UserMeta != nil {
		req.Meta = *r.UserMeta
	}
	return req
}

func (a *App) analyzeMessage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var body analyzeMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		message := "Invalid request payload"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "Request body too large"
		}
		bindErr := &analysis.Error{Kind: analysis.KindValidation, Message: message, Err: err}
		a.recordAudit(c, analysis.Response{}, bindErr)
		a.writeAnalysisError(c, bindErr)
		return
	}

	resp, err := a.analyzer.Analyze(c.Request.Context(), body.toAnalysisRequest())
	a.recordAudit(c, resp, err)
	if err != nil {
		a.writeAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// writeAnalysisError turns any error into status + {"error": message}.
func (a *App) writeAnalysisError(c *gin.Context, err error) {
	logger := a.logger.With(zap.String("request_id", c.GetString(requestIDKey)))

	var analysisErr *analysis.Error
	if !errors.As(err, &analysisErr) {
		logger.Error("error in analyze-message", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Unknown error occurred")
		return
	}

	status := analysisErr.HTTPStatus()
	fields := []zap.Field{
		zap.String("kind", string(analysisErr.Kind)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("error in analyze-message", fields...)
	} else {
		logger.Warn("analyze-message rejected", fields...)
	}
	writeError(c, status, analysisErr.PublicMessage())
}
