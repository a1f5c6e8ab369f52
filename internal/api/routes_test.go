package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/app"
	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/logger"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

// testMonday is a fixed training day used for date-scoped endpoints.
const testMonday = "2026-10-19"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Database:      config.DatabaseConfig{Driver: "memory"},
		Catalog:       config.CatalogConfig{Source: "embedded"},
		JWT:           config.JWTConfig{Secret: testSecret, Expiration: time.Hour},
		Periodization: config.PeriodizationConfig{LockWait: time.Second},
	}
	a, err := app.New(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(a.Close)

	router := gin.New()
	SetupRoutes(router, testSecret, Services{
		Auth:        a.Auth,
		Users:       a.Users,
		Exercises:   a.Exercises,
		Recovery:    a.Recovery,
		Splits:      a.Splits,
		Mesocycles:  a.Mesocycles,
		Frequencies: a.Frequencies,
		Cache:       a.Cache,
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return w, out
}

func registerAndLogin(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Dana", "email": email, "password": "correct-horse",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body)
	}
	w, body := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": "correct-horse",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router, "dana@example.com")

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Dana", "email": "DANA@example.com", "password": "correct-horse",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "dana@example.com", "password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", w.Code)
	}

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	if body["role"] != "user" {
		t.Errorf("expected role user, got %v", body["role"])
	}
	if _, leaked := body["passwordHash"]; leaked {
		t.Error("password hash leaked")
	}

	if w, _ := doJSON(t, router, http.MethodGet, "/api/v1/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
	if w, _ := doJSON(t, router, http.MethodGet, "/api/v1/me", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router, "kinds@example.com")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/splits/recommendations?frequency=9", token, nil)
	if w.Code != http.StatusBadRequest || body["kind"] != "validation" || body["field"] != "weeklyFrequency" {
		t.Errorf("bad frequency: got %d %v", w.Code, body)
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/mesocycles/active", token, nil)
	if w.Code != http.StatusNotFound || body["kind"] != "not_found" {
		t.Errorf("no active mesocycle: got %d %v", w.Code, body)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/mesocycles", token, gin.H{"splitType": "push_pull_legs"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create mesocycle: expected 201, got %d: %s", w.Code, w.Body)
	}
	w, body = doJSON(t, router, http.MethodPost, "/api/v1/mesocycles", token, gin.H{"splitType": "push_pull_legs"})
	if w.Code != http.StatusConflict || body["kind"] != "conflict" {
		t.Errorf("second mesocycle: got %d %v", w.Code, body)
	}

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/plans/"+testMonday+"/complete", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("complete without plan: got %d %v", w.Code, body)
	}

	if w, _ := doJSON(t, router, http.MethodGet, "/api/v1/status/yesterday-ish", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", w.Code)
	}

	w, body = doJSON(t, router, http.MethodPut, "/api/v1/me/preferences", token, gin.H{"limitations": []string{"bad_knees"}})
	if w.Code != http.StatusBadRequest || body["kind"] != "validation" {
		t.Errorf("unknown limitation: got %d %v", w.Code, body)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router, "plain@example.com")

	for _, path := range []string{"/api/v1/admin/sweep/migrate", "/api/v1/admin/cache/warm"} {
		if w, _ := doJSON(t, router, http.MethodPost, path, token, nil); w.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", path, w.Code)
		}
	}
	if w, _ := doJSON(t, router, http.MethodPost, "/api/v1/exercises", token, gin.H{"name": "Curl", "muscleGroup": "biceps"}); w.Code != http.StatusForbidden {
		t.Errorf("create exercise: expected 403, got %d", w.Code)
	}
}

func TestScheduleAndWorkoutFlow(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router, "flow@example.com")

	w, body := doJSON(t, router, http.MethodPut, "/api/v1/me/preferences", token, gin.H{
		"weeklyFrequency": 3,
		"limitations":     []string{"knee_issues"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("preferences: expected 200, got %d: %s", w.Code, w.Body)
	}
	if change, _ := body["frequencyChange"].(map[string]interface{}); change["changeDetected"] != false {
		t.Errorf("frequency 3 is the default and should not be reported as a change, got %v", body["frequencyChange"])
	}

	w, body = doJSON(t, router, http.MethodPost, "/api/v1/schedule/generate", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", w.Code, w.Body)
	}
	if days, _ := body["assignments"].([]interface{}); len(days) != 3 {
		t.Fatalf("expected 3 training days, got %v", body["assignments"])
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/workouts/"+testMonday, token, nil)
	if w.Code != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("workout: got %d %v", w.Code, body)
	}
	workout, _ := body["workout"].(map[string]interface{})
	content, _ := workout["content"].(map[string]interface{})
	if content["fallback"] != true {
		t.Errorf("without a generator key the bank fallback is used, got %v", content)
	}

	if w, _ := doJSON(t, router, http.MethodGet, "/api/v1/workouts/"+testMonday+"?energy=9", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("energy out of range: expected 400, got %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/workouts/"+testMonday+"/transfer", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d: %s", w.Code, w.Body)
	}
	w, body = doJSON(t, router, http.MethodPost, "/api/v1/plans/"+testMonday+"/complete", token, nil)
	if w.Code != http.StatusOK || body["completed"] != true {
		t.Fatalf("complete: got %d %v", w.Code, body)
	}
	w, body = doJSON(t, router, http.MethodPost, "/api/v1/plans/"+testMonday+"/complete", token, nil)
	if w.Code != http.StatusConflict || body["kind"] != "invalid_state" {
		t.Errorf("second complete: got %d %v", w.Code, body)
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/workouts/2026-10-20", token, nil)
	if w.Code != http.StatusOK || body["status"] != "rest_day" {
		t.Errorf("Tuesday: got %d %v", w.Code, body)
	}
}
