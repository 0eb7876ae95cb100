package domain

// ProviderKey identifies one AI backend integration in the classification
// cascade. The set is fixed; identifiers that match none of the known
// providers fall into ProviderOther.
type ProviderKey string

const (
	ProviderGroq       ProviderKey = "groq"
	ProviderCerebras   ProviderKey = "cerebras"
	ProviderGemini     ProviderKey = "gemini"
	ProviderOpenRouter ProviderKey = "openrouter"
	ProviderOther      ProviderKey = "other"
)

// KnownProviders returns the selectable provider keys in display order.
// ProviderOther is a counter bucket only and is never selectable.
func KnownProviders() []ProviderKey {
	return []ProviderKey{ProviderGroq, ProviderCerebras, ProviderGemini, ProviderOpenRouter}
}

// Product is one input or output row of a classification batch. Rows are
// identified by array position while a job runs and by CacheKey once the
// backend has classified them.
type Product struct {
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	Brand      string  `json:"brand,omitempty"`
	Size       string  `json:"size,omitempty"`
	Variety    string  `json:"variety,omitempty"`
	Price      float64 `json:"price,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	ModelUsed  string  `json:"model_used,omitempty"`
	CacheKey   string  `json:"cache_key,omitempty"`
}

type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

type LogCategory string

const (
	LogInfo     LogCategory = "info"
	LogProduct  LogCategory = "product"
	LogModel    LogCategory = "model"
	LogThink    LogCategory = "think"
	LogResponse LogCategory = "response"
	LogResult   LogCategory = "result"
	LogError    LogCategory = "error"
	LogControl  LogCategory = "control"
)

// ProcessingLogEntry is one line of the in-memory processing log. Entries
// are append-only and ordered by arrival; Ordinal is assigned by the
// controller.
type ProcessingLogEntry struct {
	Ordinal  int         `json:"ordinal"`
	Category LogCategory `json:"category"`
	Text     string      `json:"text"`
}
