package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/okulov/classify-console/internal/core/domain"
)

type fakePrefs struct {
	mu         sync.Mutex
	selections map[domain.ProviderKey]string
	handoff    []domain.Product
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{selections: make(map[domain.ProviderKey]string)}
}

func (p *fakePrefs) ModelSelection(_ context.Context, provider domain.ProviderKey) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selections[provider], nil
}

func (p *fakePrefs) SetModelSelection(_ context.Context, provider domain.ProviderKey, model string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selections[provider] = model
	return nil
}

func (p *fakePrefs) ClearModelSelection(_ context.Context, provider domain.ProviderKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.selections, provider)
	return nil
}

func (p *fakePrefs) StoreHandoff(_ context.Context, rows []domain.Product) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handoff = rows
	return nil
}

func (p *fakePrefs) TakeHandoff(context.Context) ([]domain.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rows := p.handoff
	p.handoff = nil
	return rows, nil
}

func (p *fakePrefs) stored(provider domain.ProviderKey) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selections[provider]
}

func TestSanitizeKeepsValidSelection(t *testing.T) {
	prefs := newFakePrefs()
	prefs.selections[domain.ProviderGroq] = "groq/llama-3.3-70b"

	allowed := map[domain.ProviderKey][]string{
		domain.ProviderGroq: {"groq/llama-3.1-8b", "groq/llama-3.3-70b"},
	}
	selections, err := SanitizeSelections(context.Background(), allowed, prefs, quietLogger())
	if err != nil {
		t.Fatalf("SanitizeSelections: %v", err)
	}
	if selections[domain.ProviderGroq] != "groq/llama-3.3-70b" {
		t.Fatalf("valid selection replaced: %q", selections[domain.ProviderGroq])
	}
}

func TestSanitizeFallsBackToFirstAllowed(t *testing.T) {
	prefs := newFakePrefs()
	prefs.selections[domain.ProviderGemini] = "gemini-1.0-retired"

	allowed := map[domain.ProviderKey][]string{
		domain.ProviderGemini: {"gemini-2.0-flash", "gemini-2.0-pro"},
	}
	selections, err := SanitizeSelections(context.Background(), allowed, prefs, quietLogger())
	if err != nil {
		t.Fatalf("SanitizeSelections: %v", err)
	}
	if selections[domain.ProviderGemini] != "gemini-2.0-flash" {
		t.Fatalf("expected fallback to first allowed, got %q", selections[domain.ProviderGemini])
	}
	if prefs.stored(domain.ProviderGemini) != "gemini-2.0-flash" {
		t.Fatal("fallback not persisted")
	}
}

func TestSanitizeClearsDisabledProvider(t *testing.T) {
	prefs := newFakePrefs()
	prefs.selections[domain.ProviderCerebras] = "cerebras-llama3.1-8b"

	// Cerebras vanished from the allowed map entirely.
	allowed := map[domain.ProviderKey][]string{
		domain.ProviderGroq: {"groq/llama-3.3-70b"},
	}
	selections, err := SanitizeSelections(context.Background(), allowed, prefs, quietLogger())
	if err != nil {
		t.Fatalf("SanitizeSelections: %v", err)
	}
	if selections[domain.ProviderCerebras] != "" {
		t.Fatalf("disabled provider kept a selection: %q", selections[domain.ProviderCerebras])
	}
	if prefs.stored(domain.ProviderCerebras) != "" {
		t.Fatal("stale stored selection not cleared")
	}
}

func TestSanitizePicksDefaultWhenNothingStored(t *testing.T) {
	prefs := newFakePrefs()
	allowed := map[domain.ProviderKey][]string{
		domain.ProviderOpenRouter: {"openrouter/deepseek-chat"},
	}
	selections, err := SanitizeSelections(context.Background(), allowed, prefs, quietLogger())
	if err != nil {
		t.Fatalf("SanitizeSelections: %v", err)
	}
	if selections[domain.ProviderOpenRouter] != "openrouter/deepseek-chat" {
		t.Fatalf("expected first allowed as default, got %q", selections[domain.ProviderOpenRouter])
	}
	if prefs.stored(domain.ProviderOpenRouter) != "openrouter/deepseek-chat" {
		t.Fatal("default selection not persisted")
	}
}
