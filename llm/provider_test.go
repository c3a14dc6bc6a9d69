package llm

import (
	"testing"
)

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		input   string
		want    ProviderType
		wantErr bool
	}{
		{"gemini", ProviderGemini, false},
		{"google", ProviderGemini, false},
		{"GEMINI", ProviderGemini, false},
		{"anthropic", ProviderAnthropic, false},
		{"claude", ProviderAnthropic, false},
		{"openai", ProviderOpenAI, false},
		{"gpt", ProviderOpenAI, false},
		{"mistral", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseProviderType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProviderType(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProviderType(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProviderType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestProviderBuilderDefaults(t *testing.T) {
	provider, err := NewProviderBuilder(ProviderGemini).APIKey("test-key")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if provider.Name() != "gemini" {
		t.Errorf("expected name gemini, got %s", provider.Name())
	}
	if provider.Model() != ProviderGemini.DefaultModel() {
		t.Errorf("expected default model %s, got %s", ProviderGemini.DefaultModel(), provider.Model())
	}
}

func TestProviderBuilderCustomModel(t *testing.T) {
	provider, err := ProviderOpenAI.Model("gpt-4o-mini").APIKey("test-key")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if provider.Model() != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini, got %s", provider.Model())
	}
}

func TestFromEnvMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := ProviderOpenAI.FromEnv(); err == nil {
		t.Error("expected error when API key environment variable is unset")
	}
}

func TestPhaseZeroValueIsResponse(t *testing.T) {
	var c Chunk
	if c.Phase != PhaseResponse {
		t.Errorf("zero phase must be response, got %v", c.Phase)
	}
}
