// Package llm implements the single schema-coerced JSON completion entry
// point every stage calls through (spec §4.7), grounded on
// Tangerg-lynx/ai/providers/openaiv2's thin *openai.Client wrapper and
// extended with the schema-preamble/retry/defensive-parse contract the
// Python original hand-rolled in backend/utils/llm_client.py.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/costtracker"
)

// Role identifies the speaker of a Message passed to StructuredCompletion.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the client's transport-agnostic chat message; stages never
// touch the openai-go wire types directly.
type Message struct {
	Role    Role
	Content string
}

// DefaultTemperature matches spec §4.7's structured_completion default;
// the claim verifier overrides it to 0.1.
const DefaultTemperature = 0.3

// Client is the process-global LLM singleton (spec §5 "one LLM client
// instance process-wide, lazily created from env vars" -- here explicitly
// constructed in cmd/autoscholar and injected, per DESIGN NOTES §9).
type Client struct {
	api         *openai.Client
	model       string
	tracker     *costtracker.Tracker
	logger      zerolog.Logger
	readTimeout time.Duration
}

// Options configures a Client. ConnectTimeout/ReadTimeout mirror spec §6's
// "connect 60s, read 120s" request timeout.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// New constructs a Client bound to one model and tracker.
func New(opts Options, tracker *costtracker.Tracker, logger zerolog.Logger) *Client {
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 60 * time.Second
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 120 * time.Second
	}

	api := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithRequestTimeout(connectTimeout+readTimeout),
	)

	return &Client{
		api:         &api,
		model:       opts.Model,
		tracker:     tracker,
		logger:      logger,
		readTimeout: readTimeout,
	}
}

// StructuredCompletion is spec §4.7's single entry point: it appends a
// schema-description preamble to the system message, requests JSON-object
// mode, retries transient failures, records usage/latency, and validates
// the parsed content against target before returning.
func (c *Client) StructuredCompletion(ctx context.Context, messages []Message, target any, temperature float64, maxTokens *int) error {
	preamble, err := buildSchemaPreamble(target)
	if err != nil {
		return err
	}

	raw, err := c.call(ctx, augmentWithSchema(messages, preamble), temperature, maxTokens)
	if err != nil {
		return fmt.Errorf("llm: completion failed: %w", err)
	}

	return decodeStructured(raw, target)
}

// augmentWithSchema appends preamble to the first system message, adding
// one at the front if none exists.
func augmentWithSchema(messages []Message, preamble string) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)

	for i := range out {
		if out[i].Role == RoleSystem {
			out[i].Content = out[i].Content + "\n\n" + preamble
			return out
		}
	}
	return append([]Message{{Role: RoleSystem, Content: preamble}}, out...)
}

func toAPIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// call performs one retried round trip, returning the raw message content.
// Retries follow spec §4.7/§7: exponential backoff 2s -> 15s, <= 3 attempts,
// transient network/timeout errors only -- an empty response is a content
// defect, not a transient failure, so it is not retried.
func (c *Client) call(ctx context.Context, messages []Message, temperature float64, maxTokens *int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toAPIMessages(messages),
		Temperature: openai.Float(temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}
	if maxTokens != nil {
		params.MaxTokens = openai.Int(int64(*maxTokens))
	}

	var content string

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		defer cancel()

		start := time.Now()
		resp, err := c.api.Chat.Completions.New(callCtx, params)
		latency := time.Since(start)

		if err != nil {
			c.logger.Warn().Err(err).Str("model", c.model).Msg("llm request failed, retrying")
			return err
		}

		if resp.Usage.TotalTokens > 0 {
			c.tracker.RecordLLMUsage(costtracker.Usage{
				Model:            c.model,
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				Latency:          latency,
			})
		}

		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyContent)
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 15 * time.Second
	bounded := backoff.WithMaxRetries(policy, 2)

	if err := backoff.Retry(operation, backoff.WithContext(bounded, ctx)); err != nil {
		return "", err
	}
	return content, nil
}
