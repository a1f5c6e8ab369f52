package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *ChatClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewChatClient(config.GeneratorConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: timeout,
	}, logger.NewNop())
}

func TestGenerateParsesReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !strings.Contains(req.Messages[1].Content, "chest, triceps") {
			t.Errorf("prompt missing muscle groups: %q", req.Messages[1].Content)
		}
		reply := "```json\n{\"title\":\"Push\",\"exercises\":[{\"name\":\"Bench Press\",\"muscleGroup\":\"chest\",\"sets\":4,\"reps\":\"8\"}]}\n```"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}, time.Second)

	content, err := client.Generate(context.Background(), Request{
		SplitName:    "Push",
		MuscleGroups: []domain.MuscleGroup{domain.MuscleChest, domain.MuscleTriceps},
		EnergyLevel:  3,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if content.Title != "Push" || len(content.Exercises) != 1 || content.Exercises[0].Sets != 4 {
		t.Fatalf("unexpected content: %+v", content)
	}
}

func TestGenerateTimeoutIsDependencyTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, 20*time.Millisecond)

	_, err := client.Generate(context.Background(), Request{MuscleGroups: []domain.MuscleGroup{domain.MuscleBack}})
	if !errors.Is(err, domain.ErrDependencyTimeout) {
		t.Fatalf("expected dependency timeout, got %v", err)
	}
}

func TestGenerateAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}, time.Second)

	_, err := client.Generate(context.Background(), Request{MuscleGroups: []domain.MuscleGroup{domain.MuscleBack}})
	if err == nil || errors.Is(err, domain.ErrDependencyTimeout) {
		t.Fatalf("expected a plain failure, got %v", err)
	}
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"plain json", `{"title":"A","exercises":[{"name":"Squat","sets":3,"reps":"5"}]}`, false},
		{"prose around json", `Here you go: {"title":"A","exercises":[{"name":"Squat","sets":3,"reps":"5"}]} enjoy`, false},
		{"no json", "rest today", true},
		{"no exercises", `{"title":"A","exercises":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContent(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseContent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
