package usecase

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/okulov/classify-console/internal/core/domain"
)

// LogLine is one pending processing-log append; the controller assigns
// ordinals when it applies the update.
type LogLine struct {
	Category domain.LogCategory
	Text     string
}

// ProgressUpdate carries the current-position fields of a product_start or
// progress frame.
type ProgressUpdate struct {
	Percentage  float64
	Current     int
	Total       int
	ProductName string
	Step        string
}

// Update is the typed result of interpreting one stream frame. Zero-value
// fields mean "no change"; the controller applies the whole struct under its
// lock.
type Update struct {
	Log []LogLine

	JobID    string
	Progress *ProgressUpdate

	CurrentModel   string
	ModelSwitching bool

	SuccessProvider domain.ProviderKey
	SuccessMatched  bool
	SwitchObserved  bool

	ServerStats map[domain.ProviderKey]int

	FinalRows    []domain.Product
	HasFinalRows bool
	Successful   int
	Failed       int

	Terminal domain.JobStatus
	ErrText  string
}

// Interpreter turns decoded stream frames into state updates. Dispatch is a
// single flat switch on the kind tag: kinds are mutually exclusive and each
// carries a different payload shape.
type Interpreter struct {
	classifier *ModelClassifier
	logger     *slog.Logger
}

func NewInterpreter(classifier *ModelClassifier, logger *slog.Logger) *Interpreter {
	if classifier == nil {
		classifier = NewModelClassifier(nil, nil)
	}
	return &Interpreter{classifier: classifier, logger: logger}
}

func (in *Interpreter) Interpret(event domain.ProgressEvent) Update {
	var update Update
	if event.JobID != "" {
		update.JobID = event.JobID
	}

	switch event.Kind {
	case domain.EventInit:
		update.Log = append(update.Log, LogLine{Category: domain.LogInfo, Text: event.Message})

	case domain.EventProductStart:
		update.Progress = &ProgressUpdate{
			Percentage:  event.Percentage,
			Current:     event.Current,
			Total:       event.Total,
			ProductName: event.ProductName,
			Step:        event.Step,
		}
		update.Log = append(update.Log, LogLine{
			Category: domain.LogProduct,
			Text:     fmt.Sprintf("[%d/%d] %s", event.Current, event.Total, event.ProductName),
		})

	case domain.EventModelTrying:
		update.CurrentModel = event.Model
		update.ModelSwitching = true
		update.Log = append(update.Log, LogLine{
			Category: domain.LogModel,
			Text:     "trying model " + event.Model,
		})

	case domain.EventModelSuccess:
		update.CurrentModel = event.Model
		provider, matched := in.classifier.Classify(event.Model)
		update.SuccessProvider = provider
		update.SuccessMatched = matched
		if !matched {
			in.logger.Warn("model identifier matched no provider", "model", event.Model)
		}
		if in.classifier.IsSwitch(event.Model) {
			update.SwitchObserved = true
		}
		update.Log = append(update.Log, LogLine{
			Category: domain.LogModel,
			Text:     "model succeeded: " + event.Model,
		})

	case domain.EventAIResponse:
		think, answer := splitThink(event.Think, event.Response)
		if think != "" {
			update.Log = append(update.Log, LogLine{Category: domain.LogThink, Text: think})
		}
		if answer != "" {
			update.Log = append(update.Log, LogLine{Category: domain.LogResponse, Text: answer})
		}

	case domain.EventParsedClassification:
		if event.Product != nil {
			p := event.Product
			update.Log = append(update.Log, LogLine{
				Category: domain.LogResult,
				Text: fmt.Sprintf("parsed: type=%s brand=%s name=%s size=%s variety=%s",
					p.Type, p.Brand, p.Name, p.Size, p.Variety),
			})
		}

	case domain.EventOptimizationPause:
		update.Log = append(update.Log, LogLine{Category: domain.LogControl, Text: event.Message})

	case domain.EventProgress:
		update.Progress = &ProgressUpdate{
			Percentage: event.Percentage,
			Current:    event.Current,
			Total:      event.Total,
		}
		if len(event.ModelStats) > 0 {
			update.ServerStats = mapServerStats(event.ModelStats)
		}

	case domain.EventResult:
		// Row accumulation happens at the transport layer that assembles the
		// final array; nothing to apply here.

	case domain.EventComplete:
		update.Terminal = domain.JobDone
		update.FinalRows = event.Products
		update.HasFinalRows = true
		update.Successful = event.Successful
		update.Failed = event.Failed
		if len(event.ModelStats) > 0 {
			update.ServerStats = mapServerStats(event.ModelStats)
		}
		update.Log = append(update.Log, LogLine{
			Category: domain.LogInfo,
			Text:     fmt.Sprintf("complete: %d classified, %d failed", event.Successful, event.Failed),
		})

	case domain.EventError:
		// A mid-stream error frame covers one product, not the batch; only
		// the transport decides whether the closing frame was fatal.
		update.ErrText = event.Error
		update.Log = append(update.Log, LogLine{Category: domain.LogError, Text: event.Error})

	case domain.EventStopped:
		update.Terminal = domain.JobStopped
		update.Log = append(update.Log, LogLine{Category: domain.LogControl, Text: "stopped by server"})

	default:
		in.logger.Warn("unknown stream event kind", "kind", string(event.Kind))
		update.Log = append(update.Log, LogLine{
			Category: domain.LogInfo,
			Text:     "ignored unknown event kind " + string(event.Kind),
		})
	}

	return update
}

func mapServerStats(raw map[string]int) map[domain.ProviderKey]int {
	out := make(map[domain.ProviderKey]int, len(raw))
	for key, count := range raw {
		out[domain.ProviderKey(strings.ToLower(key))] = count
	}
	return out
}

var thinkTagPattern = regexp.MustCompile(`(?is)<think>(.*?)</think>`)

// splitThink separates reasoning content from the final answer. Structured
// think content wins when present; otherwise the same tag pair is extracted
// from the raw response.
func splitThink(structured, raw string) (think, answer string) {
	if strings.TrimSpace(structured) != "" {
		return strings.TrimSpace(structured), strings.TrimSpace(thinkTagPattern.ReplaceAllString(raw, ""))
	}

	matches := thinkTagPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return "", strings.TrimSpace(raw)
	}
	segments := make([]string, 0, len(matches))
	for _, match := range matches {
		if trimmed := strings.TrimSpace(match[1]); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, "\n"), strings.TrimSpace(thinkTagPattern.ReplaceAllString(raw, ""))
}
