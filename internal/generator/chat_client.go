package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/logger"
)

const systemPrompt = `You are a strength coach. Reply with a single JSON object and nothing else:
{"title": string, "warmup": string, "exercises": [{"name": string, "muscleGroup": string, "sets": int, "reps": string, "rest": string, "notes": string}], "cooldown": string, "notes": string}
Only use exercises that train the listed muscle groups. Respect every advisory.`

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewChatClient builds a client whose HTTP timeout is the configured generator timeout.
func NewChatClient(cfg config.GeneratorConfig, log *logger.Logger) *ChatClient {
	return &ChatClient{
		log:        log.With("service", "ChatClient"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *ChatClient) Generate(ctx context.Context, req Request) (*domain.WorkoutContent, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, domain.NewDependencyTimeoutError("workout generator", err)
		}
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, domain.NewDependencyTimeoutError("workout generator", err)
		}
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("chat request: status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("chat api: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.New("chat api: empty response")
	}

	content, err := ParseContent(chatResp.Choices[0].Message.Content)
	if err != nil {
		c.log.Warn("Unparseable workout content", "error", err)
		return nil, err
	}
	return content, nil
}

// ParseContent extracts the JSON object from a model reply, tolerating code fences.
func ParseContent(reply string) (*domain.WorkoutContent, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errors.New("workout content: no JSON object in reply")
	}
	var content domain.WorkoutContent
	if err := json.Unmarshal([]byte(reply[start:end+1]), &content); err != nil {
		return nil, fmt.Errorf("workout content: %w", err)
	}
	if len(content.Exercises) == 0 {
		return nil, errors.New("workout content: no exercises")
	}
	return &content, nil
}

func buildPrompt(req Request) string {
	groups := make([]string, len(req.MuscleGroups))
	for i, g := range req.MuscleGroups {
		groups[i] = string(g)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", req.SplitName)
	fmt.Fprintf(&b, "Muscle groups: %s\n", strings.Join(groups, ", "))
	fmt.Fprintf(&b, "Energy level (1-5): %d\n", req.EnergyLevel)
	fmt.Fprintf(&b, "Available time: %d minutes\n", req.AvailableTime)
	if req.FitnessLevel != "" {
		fmt.Fprintf(&b, "Fitness level: %s\n", req.FitnessLevel)
	}
	if len(req.Equipment) > 0 {
		fmt.Fprintf(&b, "Equipment: %s\n", strings.Join(req.Equipment, ", "))
	}
	if req.Rationale != "" {
		fmt.Fprintf(&b, "Programming context: %s\n", req.Rationale)
	}
	for _, a := range req.Advisories {
		fmt.Fprintf(&b, "Advisory: %s\n", a)
	}
	return b.String()
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
