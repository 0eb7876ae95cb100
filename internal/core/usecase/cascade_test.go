package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okulov/classify-console/internal/core/domain"
)

func TestClassifyKnownProviders(t *testing.T) {
	classifier := NewModelClassifier(nil, nil)

	cases := []struct {
		model    string
		provider domain.ProviderKey
	}{
		{"groq/llama-3.3-70b-versatile", domain.ProviderGroq},
		{"CEREBRAS-llama3.1-8b", domain.ProviderCerebras},
		{"gemini-2.0-flash", domain.ProviderGemini},
		{"openrouter/deepseek-chat", domain.ProviderOpenRouter},
	}
	for _, tc := range cases {
		provider, matched := classifier.Classify(tc.model)
		if !matched || provider != tc.provider {
			t.Fatalf("Classify(%q) = %s/%v, want %s/true", tc.model, provider, matched, tc.provider)
		}
	}
}

func TestClassifyUnmatchedFallsToOther(t *testing.T) {
	classifier := NewModelClassifier(nil, nil)
	provider, matched := classifier.Classify("mystery-model-v2")
	if matched {
		t.Fatal("unmatched identifier must report matched=false")
	}
	if provider != domain.ProviderOther {
		t.Fatalf("unmatched identifier landed in %s, want %s", provider, domain.ProviderOther)
	}
}

func TestIsSwitchMarkers(t *testing.T) {
	classifier := NewModelClassifier(nil, nil)

	for _, model := range []string{"groq-retry-llama", "QwQ-32B", "qwen2.5-72b", "RETRY-QWEN-8B"} {
		if !classifier.IsSwitch(model) {
			t.Fatalf("IsSwitch(%q) = false, want true", model)
		}
	}
	if classifier.IsSwitch("gemini-2.0-flash") {
		t.Fatal("plain identifier must not count as a switch")
	}
}

func TestLoadClassifierRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
providers:
  - provider: groq
    match: ["groq", "llama-groq"]
  - provider: gemini
    match: ["gemini"]
switch_markers: ["fallback"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, markers, err := LoadClassifierRules(path)
	if err != nil {
		t.Fatalf("LoadClassifierRules: %v", err)
	}
	if len(rules) != 2 || rules[0].Provider != domain.ProviderGroq {
		t.Fatalf("rules wrong: %+v", rules)
	}
	if len(markers) != 1 || markers[0] != "fallback" {
		t.Fatalf("markers wrong: %v", markers)
	}

	classifier := NewModelClassifier(rules, markers)
	if !classifier.IsSwitch("model-FALLBACK-2") {
		t.Fatal("custom marker not applied")
	}
	if classifier.IsSwitch("retry-model") {
		t.Fatal("default markers must not survive a custom list")
	}
}

func TestLoadClassifierRulesMissingSectionsFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("providers: []\n"), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, markers, err := LoadClassifierRules(path)
	if err != nil {
		t.Fatalf("LoadClassifierRules: %v", err)
	}
	if len(rules) != len(DefaultProviderRules()) {
		t.Fatalf("expected default rules, got %+v", rules)
	}
	if len(markers) != len(DefaultSwitchMarkers()) {
		t.Fatalf("expected default markers, got %v", markers)
	}
}
