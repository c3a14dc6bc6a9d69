package server

import (
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/minase/kotae/workflow"
)

const testPublicKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, verified bool) (*Server, chan workflow.Run) {
	t.Helper()
	runs := make(chan workflow.Run, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := NewServer(":0", testPublicKey, func(run workflow.Run) { runs <- run }, logger)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	s.WithVerifier(func(r *http.Request, key ed25519.PublicKey) bool { return verified })
	return s, runs
}

func postInteraction(t *testing.T, s *Server, payload string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(payload))
	request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, request)
	return recorder
}

const commandPayload = `{
	"id": "interaction-9001",
	"type": 2,
	"token": "tok-abc",
	"data": {
		"name": "ask",
		"options": [{"name": "question", "type": 3, "value": "What is X?"}]
	}
}`

func TestPingIsAcknowledged(t *testing.T) {
	s, runs := newTestServer(t, true)

	recorder := postInteraction(t, s, `{"id": "1", "type": 1}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d", recorder.Code)
	}
	var response struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Type != 1 {
		t.Errorf("response type: got %d, want pong", response.Type)
	}
	select {
	case run := <-runs:
		t.Errorf("ping launched a run: %+v", run)
	default:
	}
}

func TestCommandLaunchesRunAndDefers(t *testing.T) {
	s, runs := newTestServer(t, true)

	recorder := postInteraction(t, s, commandPayload)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", recorder.Code, recorder.Body)
	}
	var response struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Type != 5 {
		t.Errorf("response type: got %d, want deferred channel message", response.Type)
	}

	select {
	case run := <-runs:
		if run.RequestID != "interaction-9001" {
			t.Errorf("request id: got %q", run.RequestID)
		}
		if run.Token != "tok-abc" {
			t.Errorf("token: got %q", run.Token)
		}
		if run.Message != "What is X?" {
			t.Errorf("message: got %q", run.Message)
		}
		if run.InstanceID == "" {
			t.Error("instance id is empty")
		}
	default:
		t.Fatal("no run launched")
	}
}

func TestDistinctRequestsGetDistinctInstanceIDs(t *testing.T) {
	s, runs := newTestServer(t, true)

	postInteraction(t, s, commandPayload)
	first := <-runs
	postInteraction(t, s, commandPayload)
	second := <-runs

	if first.InstanceID == second.InstanceID {
		t.Errorf("instance ids collide: %q", first.InstanceID)
	}
}

func TestUnverifiedRequestIsRejected(t *testing.T) {
	s, runs := newTestServer(t, false)

	recorder := postInteraction(t, s, commandPayload)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", recorder.Code)
	}
	select {
	case <-runs:
		t.Error("unverified request launched a run")
	default:
	}
}

func TestMissingQuestionIsRejected(t *testing.T) {
	s, runs := newTestServer(t, true)

	payload := `{"id": "1", "type": 2, "token": "t", "data": {"name": "ask", "options": []}}`
	recorder := postInteraction(t, s, payload)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", recorder.Code)
	}
	select {
	case <-runs:
		t.Error("invalid request launched a run")
	default:
	}
}

func TestMalformedBodyIsRejected(t *testing.T) {
	s, _ := newTestServer(t, true)

	recorder := postInteraction(t, s, `{"type": `)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", recorder.Code)
	}
}

func TestBadPublicKeyIsRejectedAtConstruction(t *testing.T) {
	if _, err := NewServer(":0", "not-hex", nil, nil); err == nil {
		t.Error("expected error for non-hex key")
	}
	if _, err := NewServer(":0", "abcd", nil, nil); err == nil {
		t.Error("expected error for short key")
	}
}
