package analyzer

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

	"github.com/ManuelReschke/ResumeFox/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"
)

// Client calls the chat-completions API that powers analysis and
// optimization. Admission charges before any call lands here, so a failed
// request costs the user credits; callers surface that honestly instead of
// retrying forever.
type Client struct {
	APIKey     string
	Model      string
	APIBaseURL string

	HTTPClient *http.Client
}

// AnalysisResult is the structured outcome of a resume analysis.
type AnalysisResult struct {
	Score       int      `json:"score"`
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Gaps        []string `json:"gaps"`
	Suggestions []string `json:"suggestions"`
}

func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("AI_API_KEY", "")),
		Model:      strings.TrimSpace(env.GetEnv("AI_MODEL", defaultModel)),
		APIBaseURL: strings.TrimSpace(env.GetEnv("AI_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

const analysisSystemPrompt = `You are a resume reviewer. Respond with a JSON object with the fields ` +
	`"score" (0-100 integer), "summary" (string), "strengths" (string array), ` +
	`"gaps" (string array) and "suggestions" (string array). No other text.`

// Analyze scores a resume and extracts strengths, gaps and suggestions.
func (c *Client) Analyze(ctx context.Context, resumeText string) (*AnalysisResult, error) {
	content, err := c.complete(ctx, analysisSystemPrompt, resumeText, true)
	if err != nil {
		return nil, err
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("analysis response is not valid JSON: %w", err)
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("analysis score %d out of range", result.Score)
	}
	return &result, nil
}

const optimizeSystemPrompt = `You are a resume editor. Rewrite the resume to be clearer and more ` +
	`impactful while keeping every fact truthful. Respond with the rewritten resume text only.`

// Optimize rewrites a resume for general impact.
func (c *Client) Optimize(ctx context.Context, resumeText string) (string, error) {
	return c.complete(ctx, optimizeSystemPrompt, resumeText, false)
}

const optimizeJDSystemPrompt = `You are a resume editor. Rewrite the resume so it targets the given ` +
	`job description, emphasizing matching experience while keeping every fact truthful. ` +
	`Respond with the rewritten resume text only.`

// OptimizeForJob rewrites a resume targeted at one job description.
func (c *Client) OptimizeForJob(ctx context.Context, resumeText, jobDescription string) (string, error) {
	input := fmt.Sprintf("JOB DESCRIPTION:\n%s\n\nRESUME:\n%s", jobDescription, resumeText)
	return c.complete(ctx, optimizeJDSystemPrompt, input, false)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, systemPrompt, userInput string, jsonMode bool) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("AI_API_KEY is not configured")
	}
	if strings.TrimSpace(userInput) == "" {
		return "", errors.New("input text is required")
	}

	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
	}
	if jsonMode {
		reqBody.ResponseFormat = json.RawMessage(`{"type":"json_object"}`)
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.APIBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("completion response has no content")
	}
	return out.Choices[0].Message.Content, nil
}
