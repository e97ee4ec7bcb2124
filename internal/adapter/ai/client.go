package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/config"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
)

// Client implements domain.ReasoningClient against an OpenAI-compatible
// chat-completions endpoint. Each call is a single attempt: failures and
// timeouts return domain.ErrUpstreamFailure and the caller degrades to
// heuristics within the same request.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a reasoning client with the configured timeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:     cfg,
		hc:      &http.Client{Timeout: cfg.ReasoningTimeout},
		counter: tokencount.NewCounter(),
	}
}

// ScoreAnswer asks the reasoning service to grade one answer.
func (c *Client) ScoreAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.ReasoningAnswerResult, error) {
	rc, _ := domain.RubricFor(sub.Route)
	user := buildAnswerPrompt(sub, rc, c.counter, c.cfg.ReasoningModel, c.cfg.PromptTokenBudget)

	raw, err := c.chatJSON(ctx, "score_answer", answerSystemPrompt, user)
	if err != nil {
		return domain.ReasoningAnswerResult{}, err
	}
	res, err := parseAnswerResult(raw)
	if err != nil {
		slog.Warn("reasoning answer response failed schema validation", slog.Any("error", err))
		return domain.ReasoningAnswerResult{}, err
	}
	return res, nil
}

// FinalEvaluation asks the reasoning service to grade the whole
// interview against the route rubric.
func (c *Client) FinalEvaluation(ctx context.Context, req domain.FinalEvaluationRequest) (domain.FinalReport, error) {
	rc, _ := domain.RubricFor(req.Route)
	user := buildFinalPrompt(req, rc)

	raw, err := c.chatJSON(ctx, "final_evaluation", finalSystemPrompt, user)
	if err != nil {
		return domain.FinalReport{}, err
	}
	rep, err := parseFinalReport(raw)
	if err != nil {
		slog.Warn("reasoning final response failed schema validation", slog.Any("error", err))
		return domain.FinalReport{}, err
	}
	return rep, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatJSON performs one chat-completions call. No retry by contract.
func (c *Client) chatJSON(ctx context.Context, operation, system, user string) (string, error) {
	if c.cfg.ReasoningAPIKey == "" {
		return "", fmt.Errorf("%w: reasoning API key missing", domain.ErrInvalidArgument)
	}

	body, err := json.Marshal(map[string]any{
		"model": c.cfg.ReasoningModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"max_tokens":      c.cfg.ReasoningMaxTokens,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ReasoningBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.ReasoningAPIKey)

	start := time.Now()
	resp, err := c.hc.Do(req)
	dur := time.Since(start)
	if err != nil {
		observability.ObserveReasoningRequest(operation, "error", dur)
		slog.Warn("reasoning service call failed",
			slog.String("operation", operation),
			slog.Duration("duration", dur),
			slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		observability.ObserveReasoningRequest(operation, "error", dur)
		slog.Warn("reasoning service returned non-200",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return "", fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		observability.ObserveReasoningRequest(operation, "error", dur)
		return "", fmt.Errorf("%w: decode chat response: %v", domain.ErrUpstreamFailure, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		observability.ObserveReasoningRequest(operation, "empty", dur)
		return "", fmt.Errorf("%w: empty chat response", domain.ErrUpstreamFailure)
	}

	observability.ObserveReasoningRequest(operation, "ok", dur)
	return parsed.Choices[0].Message.Content, nil
}
