package usecase

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okulov/classify-console/internal/core/domain"
)

// ProviderRule maps free-text model identifiers to one provider key by
// case-insensitive substring match. Rules are data so a new provider naming
// convention is a config change, not a code change.
type ProviderRule struct {
	Provider domain.ProviderKey `yaml:"provider"`
	Match    []string           `yaml:"match"`
}

func DefaultProviderRules() []ProviderRule {
	return []ProviderRule{
		{Provider: domain.ProviderGroq, Match: []string{"groq"}},
		{Provider: domain.ProviderCerebras, Match: []string{"cerebras"}},
		{Provider: domain.ProviderGemini, Match: []string{"gemini"}},
		{Provider: domain.ProviderOpenRouter, Match: []string{"openrouter"}},
	}
}

// DefaultSwitchMarkers are the identifier fragments that signal the backend
// fell through its cascade before this success.
func DefaultSwitchMarkers() []string {
	return []string{"retry", "qwq", "qwen"}
}

// ModelClassifier resolves model identifiers to provider buckets and detects
// cascade switches. Both checks are independent: an identifier can miss every
// provider rule and still count as a switch.
type ModelClassifier struct {
	rules         []ProviderRule
	switchMarkers []string
}

func NewModelClassifier(rules []ProviderRule, switchMarkers []string) *ModelClassifier {
	if len(rules) == 0 {
		rules = DefaultProviderRules()
	}
	if len(switchMarkers) == 0 {
		switchMarkers = DefaultSwitchMarkers()
	}
	return &ModelClassifier{rules: rules, switchMarkers: switchMarkers}
}

// Classify returns the provider bucket for a model identifier. Unmatched
// identifiers land in ProviderOther with matched=false so the caller can log
// them without feeding the stats.
func (c *ModelClassifier) Classify(identifier string) (provider domain.ProviderKey, matched bool) {
	lowered := strings.ToLower(identifier)
	for _, rule := range c.rules {
		for _, fragment := range rule.Match {
			if fragment != "" && strings.Contains(lowered, strings.ToLower(fragment)) {
				return rule.Provider, true
			}
		}
	}
	return domain.ProviderOther, false
}

func (c *ModelClassifier) IsSwitch(identifier string) bool {
	lowered := strings.ToLower(identifier)
	for _, marker := range c.switchMarkers {
		if marker != "" && strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

type classifierRulesFile struct {
	Providers     []ProviderRule `yaml:"providers"`
	SwitchMarkers []string       `yaml:"switch_markers"`
}

// LoadClassifierRules reads provider rules and switch markers from a YAML
// file. Missing sections fall back to the defaults.
func LoadClassifierRules(path string) ([]ProviderRule, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read classifier rules: %w", err)
	}
	var file classifierRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse classifier rules: %w", err)
	}
	rules := file.Providers
	if len(rules) == 0 {
		rules = DefaultProviderRules()
	}
	markers := file.SwitchMarkers
	if len(markers) == 0 {
		markers = DefaultSwitchMarkers()
	}
	return rules, markers, nil
}
