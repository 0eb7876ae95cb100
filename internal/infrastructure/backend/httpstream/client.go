package httpstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okulov/classify-console/internal/core/domain"
	"github.com/okulov/classify-console/internal/core/ports"
	"github.com/okulov/classify-console/internal/infrastructure/resilience"
)

const (
	frameChannelDepth = 32
	maxFrameBytes     = 4 << 20
	unaryTimeout      = 30 * time.Second
)

// Client talks to the classification backend: streaming submission over SSE,
// cooperative stop, full-array edit saves and the allowed-models query.
// Streaming reads carry no timeout on purpose; canceling the submit context
// closes the connection.
type Client struct {
	baseURL  string
	stream   *http.Client
	unary    *http.Client
	logger   *slog.Logger
	executor *resilience.Executor

	modelsLimiter *rate.Limiter
	modelsMu      sync.Mutex
	modelsCache   map[domain.ProviderKey][]string
}

type Options struct {
	// ModelsRefreshEvery limits how often AllowedModels hits the backend;
	// calls inside the window serve the cached copy.
	ModelsRefreshEvery time.Duration
	Executor           *resilience.Executor
}

func New(baseURL string, logger *slog.Logger, options Options) *Client {
	refresh := options.ModelsRefreshEvery
	if refresh <= 0 {
		refresh = 30 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		stream:        &http.Client{},
		unary:         &http.Client{Timeout: unaryTimeout},
		logger:        logger,
		executor:      options.Executor,
		modelsLimiter: rate.NewLimiter(rate.Every(refresh), 1),
	}
}

type submitPayload struct {
	Products       []wireRow         `json:"products"`
	CacheLookup    bool              `json:"cache_lookup"`
	CacheStore     bool              `json:"cache_store"`
	ModelOverrides map[string]string `json:"model_overrides,omitempty"`
}

// Submit opens the streaming submission and decodes frames in arrival order
// onto the returned channel. The channel closes when the connection ends;
// a decode or read failure is delivered as an error frame first.
func (c *Client) Submit(ctx context.Context, req ports.SubmitRequest) (<-chan ports.StreamFrame, error) {
	payload := submitPayload{
		Products:    toWireRows(req.Rows),
		CacheLookup: req.CacheLookup,
		CacheStore:  req.CacheStore,
	}
	if len(req.ModelOverrides) > 0 {
		payload.ModelOverrides = make(map[string]string, len(req.ModelOverrides))
		for provider, model := range req.ModelOverrides {
			payload.ModelOverrides[string(provider)] = model
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal submit payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "open classification stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, domain.WrapError(domain.ErrTransport, "open classification stream",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readErrorBody(resp.Body)))
	}

	frames := make(chan ports.StreamFrame, frameChannelDepth)
	go c.readFrames(ctx, resp.Body, frames)
	return frames, nil
}

// readFrames consumes the SSE body. Frames are `data: {json}` lines separated
// by blank lines; a bare JSON line (NDJSON fallback) and the `[DONE]`
// sentinel are tolerated.
func (c *Client) readFrames(ctx context.Context, body io.ReadCloser, frames chan<- ports.StreamFrame) {
	defer close(frames)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64<<10), maxFrameBytes)

	var data bytes.Buffer
	flush := func() bool {
		if data.Len() == 0 {
			return false
		}
		raw := data.Bytes()
		data.Reset()

		if bytes.Equal(bytes.TrimSpace(raw), []byte("[DONE]")) {
			return false
		}
		event, err := domain.DecodeProgressEvent(raw)
		if err != nil {
			frames <- ports.StreamFrame{Err: err}
			return false
		}
		frames <- ports.StreamFrame{Event: event}
		return event.Terminal()
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if flush() {
				// The job is over; whatever trails the terminal frame is
				// keepalive noise.
				return
			}
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// SSE comment / keepalive.
		default:
			data.WriteString(line)
			if flush() {
				return
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		frames <- ports.StreamFrame{Err: domain.WrapError(domain.ErrTransport, "read classification stream", err)}
	}
}

// Stop notifies the backend to halt work for a job. Single attempt: the
// caller treats failures as non-fatal, so retrying here only delays the
// return to an interactive state.
func (c *Client) Stop(ctx context.Context, jobID string) error {
	url := fmt.Sprintf("%s/v1/classify/%s/stop", c.baseURL, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build stop request: %w", err)
	}

	resp, err := c.unary.Do(httpReq)
	if err != nil {
		return domain.WrapError(domain.ErrTransport, "stop job", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrTransport, "stop job",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readErrorBody(resp.Body)))
	}
	return nil
}

// SaveEdits replaces the server-side cached row set. One attempt, no retry:
// the synchronizer owns failure surfacing and the next edit saves again
// anyway.
func (c *Client) SaveEdits(ctx context.Context, rows []domain.Product) error {
	body, err := json.Marshal(map[string]any{"products": toWireRows(rows)})
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/cache/rows", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.unary.Do(httpReq)
	if err != nil {
		return domain.WrapError(domain.ErrTransport, "save edited rows", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrTransport, "save edited rows",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readErrorBody(resp.Body)))
	}
	return nil
}

// AllowedModels returns the per-provider allowed identifier lists. Results
// are cached; refreshes are rate limited and a refresh failure falls back to
// the cached copy when one exists.
func (c *Client) AllowedModels(ctx context.Context) (map[domain.ProviderKey][]string, error) {
	c.modelsMu.Lock()
	cached := c.modelsCache
	refresh := c.modelsLimiter.Allow()
	c.modelsMu.Unlock()

	if cached != nil && !refresh {
		return cached, nil
	}

	var fetched map[domain.ProviderKey][]string
	fetch := func(ctx context.Context) error {
		var err error
		fetched, err = c.fetchAllowedModels(ctx)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Do(ctx, "backend.allowed_models", fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		if cached != nil {
			c.logger.Warn("allowed-models refresh failed, serving cached copy", "error", err)
			return cached, nil
		}
		return nil, err
	}

	c.modelsMu.Lock()
	c.modelsCache = fetched
	c.modelsMu.Unlock()
	return fetched, nil
}

func (c *Client) fetchAllowedModels(ctx context.Context) (map[domain.ProviderKey][]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}

	resp, err := c.unary.Do(httpReq)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "query allowed models", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(domain.ErrTransport, "query allowed models",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readErrorBody(resp.Body)))
	}

	var decoded struct {
		Providers map[string][]string `json:"providers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.WrapError(domain.ErrTransport, "query allowed models", err)
	}

	out := make(map[domain.ProviderKey][]string, len(decoded.Providers))
	for key, models := range decoded.Providers {
		out[domain.ProviderKey(strings.ToLower(key))] = models
	}
	return out, nil
}

// ClassifyError marks connection-shaped failures retryable for the
// resilience executor; HTTP 4xx-shaped errors are terminal.
func ClassifyError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if domain.IsKind(err, domain.ErrTransport) {
		return resilience.Classification{Retryable: true, CountsAsFailure: true}
	}
	return resilience.Classification{CountsAsFailure: true}
}

func readErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return "<empty body>"
	}
	return string(bytes.TrimSpace(data))
}

// wireRow is the backend's expected row shape. The product_name and
// product_type aliases duplicate name and type for older cache readers.
type wireRow struct {
	Name        string  `json:"name"`
	ProductName string  `json:"product_name"`
	Type        string  `json:"type,omitempty"`
	ProductType string  `json:"product_type,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Size        string  `json:"size,omitempty"`
	Variety     string  `json:"variety,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Image       string  `json:"image,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	ModelUsed   string  `json:"model_used,omitempty"`
	CacheKey    string  `json:"cache_key,omitempty"`
}

func toWireRows(rows []domain.Product) []wireRow {
	out := make([]wireRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, wireRow{
			Name:        row.Name,
			ProductName: row.Name,
			Type:        row.Type,
			ProductType: row.Type,
			Brand:       row.Brand,
			Size:        row.Size,
			Variety:     row.Variety,
			Price:       row.Price,
			Image:       row.ImageURL,
			Confidence:  row.Confidence,
			ModelUsed:   row.ModelUsed,
			CacheKey:    row.CacheKey,
		})
	}
	return out
}
