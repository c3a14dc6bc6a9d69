package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	settings, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if settings.LLM.Provider != "gemini" {
		t.Errorf("default provider: got %q", settings.LLM.Provider)
	}
	if settings.Store.TTL != 5*time.Minute {
		t.Errorf("default TTL: got %v", settings.Store.TTL)
	}
	if settings.Throttle.ResponseInterval != 1500*time.Millisecond {
		t.Errorf("default response interval: got %v", settings.Throttle.ResponseInterval)
	}
	if settings.Throttle.ThinkingMinChars != 200 {
		t.Errorf("default thinking min chars: got %d", settings.Throttle.ThinkingMinChars)
	}
	if settings.Workflow.StreamTimeout != 90*time.Second {
		t.Errorf("default stream timeout: got %v", settings.Workflow.StreamTimeout)
	}
	if settings.Workflow.QuestionPrefix != "質問: " {
		t.Errorf("default question prefix: got %q", settings.Workflow.QuestionPrefix)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("STORE_TTL", "10m")
	t.Setenv("THROTTLE_RESPONSE_MIN_CHARS", "25")
	t.Setenv("WORKFLOW_FAILURE_TEMPLATE", "failed: %s")

	settings, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if settings.Store.TTL != 10*time.Minute {
		t.Errorf("TTL override: got %v", settings.Store.TTL)
	}
	if settings.Throttle.ResponseMinChars != 25 {
		t.Errorf("min chars override: got %d", settings.Throttle.ResponseMinChars)
	}
	if settings.Workflow.FailureTemplate != "failed: %s" {
		t.Errorf("failure template override: got %q", settings.Workflow.FailureTemplate)
	}
}

func TestNewRejectsInvalidValues(t *testing.T) {
	t.Setenv("STORE_TTL", "not-a-duration")
	if _, err := New(); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestNewRejectsInvalidInt(t *testing.T) {
	t.Setenv("THROTTLE_RESPONSE_MIN_CHARS", "many")
	if _, err := New(); err == nil {
		t.Error("expected error for invalid integer")
	}
}
