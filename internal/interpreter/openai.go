package interpreter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
)

const (
	openAIDefaultModel = "gpt-4o-mini"

	// maxRepairAttempts limits self-repair loops when fragment
	// parsing/validation fails within one request attempt.
	maxRepairAttempts = 2
)

// OpenAIConfig holds configuration for the OpenAI-backed interpreter.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string        // Optional (tests, proxies)
	MaxAttempts int           // Retry attempts for transient failures
	Timeout     time.Duration // HTTP timeout
	HTTPClient  *http.Client  // Optional (tests)
}

// OpenAIInterpreter renders page snapshots through the chat completions
// API.
type OpenAIInterpreter struct {
	model       string
	maxAttempts int
	client      openai.Client
	resolver    *prompts.Resolver
	logger      *slog.Logger
}

// NewOpenAI creates an interpreter backed by the OpenAI API.
func NewOpenAI(cfg OpenAIConfig, resolver *prompts.Resolver, logger *slog.Logger) *OpenAIInterpreter {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if resolver == nil {
		resolver = prompts.NewResolver(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIInterpreter{
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
		client:      openai.NewClient(opts...),
		resolver:    resolver,
		logger:      logger.With("component", "interpreter"),
	}
}

// RenderFragment sends the snapshot to the model and returns the
// validated Typst fragment.
func (o *OpenAIInterpreter) RenderFragment(ctx context.Context, snap Snapshot) (Fragment, error) {
	system, err := o.resolver.Resolve(prompts.KeyGenerateTypst, snap.SessionID)
	if err != nil {
		return Fragment{}, err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return Fragment{}, fmt.Errorf("marshal snapshot for page %d: %w", snap.Page, err)
	}

	var frag Fragment
	err = retry.Do(
		func() error {
			got, rerr := o.requestFragment(ctx, system.Text, string(payload), snap.Image)
			if rerr != nil {
				return rerr
			}
			frag = got
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.maxAttempts)),
		retry.Delay(1*time.Second),
	)
	if err != nil {
		return Fragment{}, fmt.Errorf("interpret page %d: %w", snap.Page, err)
	}

	if frag.Page != snap.Page {
		o.logger.Warn("fragment page mismatch, correcting",
			"want", snap.Page, "got", frag.Page)
		frag.Page = snap.Page
	}
	return frag, nil
}

// requestFragment runs one chat completion, including the local
// parse/validate/repair loop.
func (o *OpenAIInterpreter) requestFragment(ctx context.Context, system, payload string, pageImage []byte) (Fragment, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		o.userMessage(payload, pageImage),
	}

	for attempt := 0; ; attempt++ {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(o.model),
			Messages: messages,
		})
		if err != nil {
			return Fragment{}, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Fragment{}, fmt.Errorf("chat completion returned no choices")
		}
		content := resp.Choices[0].Message.Content

		raw, perr := parseFragmentJSON(content)
		if perr == nil {
			frag, verr := validateFragment(raw)
			if verr == nil {
				return frag, nil
			}
			perr = verr
		}

		if attempt >= maxRepairAttempts {
			return Fragment{}, perr
		}
		o.logger.Debug("fragment output invalid, requesting repair",
			"attempt", attempt+1, "error", perr)
		messages = append(messages,
			openai.AssistantMessage(content),
			openai.UserMessage(repairPrompt(content, perr)))
	}
}

// userMessage builds the user turn: snapshot JSON, plus the page
// snapshot image as a data URL when present.
func (o *OpenAIInterpreter) userMessage(payload string, pageImage []byte) openai.ChatCompletionMessageParamUnion {
	if len(pageImage) == 0 {
		return openai.UserMessage(payload)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pageImage)
	return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(payload),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	})
}
