package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/ports"
)

// SanitizeSelections reconciles persisted per-provider model selections with
// the latest allowed sets. A stored choice that is no longer allowed falls
// back to the first available model; a provider whose allowed set is empty
// gets its selection cleared and is disabled. Updated selections are written
// back to the store so the next session starts clean.
func SanitizeSelections(
	ctx context.Context,
	allowed map[domain.ProviderKey][]string,
	prefs ports.PreferencesStore,
	logger *slog.Logger,
) (map[domain.ProviderKey]string, error) {
	selections := make(map[domain.ProviderKey]string, len(domain.KnownProviders()))

	for _, provider := range domain.KnownProviders() {
		stored, err := prefs.ModelSelection(ctx, provider)
		if err != nil {
			return nil, fmt.Errorf("read model selection for %s: %w", provider, err)
		}

		models := allowed[provider]
		if len(models) == 0 {
			if stored != "" {
				logger.Info("clearing selection for disabled provider", "provider", string(provider), "was", stored)
				if err := prefs.ClearModelSelection(ctx, provider); err != nil {
					return nil, fmt.Errorf("clear model selection for %s: %w", provider, err)
				}
			}
			selections[provider] = ""
			continue
		}

		if containsModel(models, stored) {
			selections[provider] = stored
			continue
		}

		fallback := models[0]
		if stored != "" {
			logger.Info("stored model no longer allowed, falling back",
				"provider", string(provider), "was", stored, "now", fallback)
		}
		if err := prefs.SetModelSelection(ctx, provider, fallback); err != nil {
			return nil, fmt.Errorf("persist model selection for %s: %w", provider, err)
		}
		selections[provider] = fallback
	}

	return selections, nil
}

func containsModel(models []string, candidate string) bool {
	if candidate == "" {
		return false
	}
	for _, model := range models {
		if model == candidate {
			return true
		}
	}
	return false
}
