// Package client submits analysis requests to the analyze-message endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"relationshipai/apps/backend/internal/analysis"
)

// ErrInFlight is returned when Submit is called while another submission is outstanding.
var ErrInFlight = errors.New("an analysis request is already in flight")

type payload struct {
	UserText     string             `json:"userText"`
	ChatSnippets string             `json:"chatSnippets,omitempty"`
	UserMeta     *analysis.UserMeta `json:"userMeta,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Builder sends at most one request at a time to the Analysis Service.
type Builder struct {
	endpoint   string
	token      string
	httpClient *http.Client
	inFlight   *semaphore.Weighted
}

type Option func(*Builder)

// WithToken sets the bearer token sent in the Authorization header.
func WithToken(token string) Option {
	return func(b *Builder) { b.token = strings.TrimSpace(token) }
}

func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) { b.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(b *Builder) { b.httpClient = &http.Client{Timeout: d} }
}

// New returns a Builder posting to endpoint, the full analyze-message URL.
func New(endpoint string, opts ...Option) *Builder {
	b := &Builder{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{},
		inFlight:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit validates req, sends it once and returns the validated response.
// Blank text fails with a validation error before any network call.
func (b *Builder) Submit(ctx context.Context, req analysis.Request) (analysis.Response, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return analysis.Response{}, &analysis.Error{Kind: analysis.KindValidation, Message: "Please enter a message to analyze"}
	}
	if !b.inFlight.TryAcquire(1) {
		return analysis.Response{}, ErrInFlight
	}
	defer b.inFlight.Release(1)

	body := payload{
		UserText:     text,
		ChatSnippets: strings.TrimSpace(req.ChatSnippets),
	}
	meta := analysis.UserMeta{
		RelationshipRole: strings.TrimSpace(req.Meta.RelationshipRole),
		PreferredTone:    strings.TrimSpace(req.Meta.PreferredTone),
	}
	if !meta.IsZero() {
		body.UserMeta = &meta
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return analysis.Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return analysis.Response{}, fmt.Errorf("build analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return analysis.Response{}, &analysis.Error{Kind: analysis.KindUpstream, Message: "analysis service unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysis.Response{}, &analysis.Error{Kind: analysis.KindUpstream, Message: "reading analysis response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return analysis.Response{}, errorFromStatus(resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return analysis.Response{}, &analysis.Error{Kind: analysis.KindParse, Message: "no data returned from analysis"}
	}
	return analysis.ParseResponse(string(raw))
}

func errorFromStatus(status int, raw []byte) *analysis.Error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)
	message := strings.TrimSpace(body.Error)

	if status == http.StatusBadRequest {
		return &analysis.Error{Kind: analysis.KindValidation, Message: message, UpstreamStatus: status, Body: string(raw)}
	}
	e := analysis.FromStatus(status, string(raw))
	if message != "" {
		e.Message = message
	}
	return e
}
