package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"talent-assessment-service/internal/domain"
)

const (
	DefaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel         = "gemini-2.0-flash"
	DefaultTimeout       = 60 * time.Second
	DefaultQuestionCount = 10
)

// Config holds everything the client needs to reach the generative-language API.
type Config struct {
	APIKey          string
	BaseURL         string
	GenerationModel string
	EvaluationModel string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a failed one.
	MaxRetries    int
	RetryInterval time.Duration
	QuestionCount int
}

// Client implements app.QuestionGenerator and app.Evaluator over the Gemini
// generateContent endpoint with JSON-constrained responses.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = DefaultModel
	}
	if cfg.EvaluationModel == "" {
		cfg.EvaluationModel = cfg.GenerationModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultQuestionCount
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsEnabled returns true if an API key is configured.
func (c *Client) IsEnabled() bool {
	return c.cfg.APIKey != ""
}

// GenerateQuestions asks the model for a question set for the given profile.
func (c *Client) GenerateQuestions(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	if !c.IsEnabled() {
		return nil, domain.ErrAIDisabled
	}

	text, err := c.generate(ctx, c.cfg.GenerationModel, buildGenerationPrompt(req, c.cfg.QuestionCount), questionSetSchema(req.Seniority))
	if err != nil {
		return nil, err
	}

	var questions []domain.Question
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("%w: decode questions: %w", domain.ErrInvalidQuestionSet, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrInvalidQuestionSet)
	}
	return questions, nil
}

// Evaluate scores an answer map. Responses without both fields, or with a
// score outside 0-100, are rejected.
func (c *Client) Evaluate(ctx context.Context, req domain.EvaluationRequest) (domain.Evaluation, error) {
	if !c.IsEnabled() {
		return domain.Evaluation{}, domain.ErrAIDisabled
	}

	prompt, err := buildEvaluationPrompt(req)
	if err != nil {
		return domain.Evaluation{}, err
	}
	text, err := c.generate(ctx, c.cfg.EvaluationModel, prompt, evaluationSchema())
	if err != nil {
		return domain.Evaluation{}, err
	}

	var raw struct {
		Score    *float64 `json:"score"`
		Analysis *string  `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: decode evaluation: %w", domain.ErrEvaluationFailed, err)
	}
	if raw.Score == nil || raw.Analysis == nil {
		return domain.Evaluation{}, fmt.Errorf("%w: missing score or analysis", domain.ErrEvaluationFailed)
	}
	if *raw.Score < 0 || *raw.Score > 100 {
		return domain.Evaluation{}, fmt.Errorf("%w: score %v out of range", domain.ErrEvaluationFailed, *raw.Score)
	}
	return domain.Evaluation{
		Score:    int(math.Round(*raw.Score)),
		Analysis: strings.TrimSpace(*raw.Analysis),
	}, nil
}

// statusError is a non-2xx answer from the API.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.Code, e.Body)
}

// generate calls the model, retrying transient failures with exponential backoff.
func (c *Client) generate(ctx context.Context, model, prompt string, schema map[string]interface{}) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), ctx)

	var text string
	err := backoff.Retry(func() error {
		out, err := c.call(ctx, model, prompt, schema)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		text = out
		return nil
	}, retry)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, model, prompt string, schema map[string]interface{}) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"responseSchema":   schema,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := c.cfg.BaseURL + "/" + model + ":generateContent"
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{Code: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("empty response from Gemini")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
