package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tangerg-labs/autoscholar/internal/llm"
	"github.com/tangerg-labs/autoscholar/internal/model"
	"github.com/tangerg-labs/autoscholar/internal/promptset"
)

// keywordPlan is the schema-coerced shape of the Planner's single LLM call.
type keywordPlan struct {
	Keywords []string `json:"keywords"`
}

// Planner decomposes the user's query into search keyword phrases.
type Planner struct {
	llmClient  *llm.Client
	templates  promptset.Templates
	maxKeywords int
	maxTurns    int
	logger      zerolog.Logger
}

// NewPlanner builds a Planner.
func NewPlanner(llmClient *llm.Client, templates promptset.Templates, maxKeywords, maxTurns int, logger zerolog.Logger) *Planner {
	return &Planner{llmClient: llmClient, templates: templates, maxKeywords: maxKeywords, maxTurns: maxTurns, logger: logger}
}

// Run decomposes state.UserQuery into up to maxKeywords search phrases,
// grounding the decomposition in recent conversation turns when this run
// is a continuation.
func (p *Planner) Run(ctx context.Context, state *model.SessionState) (model.StagePatch, error) {
	p.logger.Info().Str("user_query", state.UserQuery).Bool("continuation", state.IsContinuation).Msg("planner: decomposing query")

	conversationContext := ""
	if state.IsContinuation && len(state.Messages) > 0 {
		conversationContext = buildConversationContext(state.Messages, p.maxTurns)
	}

	var result keywordPlan
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: p.templates.PlannerSystem(conversationContext)},
		{Role: llm.RoleUser, Content: state.UserQuery},
	}

	start := time.Now()
	if err := p.llmClient.StructuredCompletion(ctx, messages, &result, llm.DefaultTemperature, nil); err != nil {
		return model.StagePatch{}, fmt.Errorf("stage: planner: %w", err)
	}
	elapsed := time.Since(start)

	keywords := result.Keywords
	if len(keywords) > p.maxKeywords {
		keywords = keywords[:p.maxKeywords]
	}

	logMsg := fmt.Sprintf("Generated %d search keywords: %v", len(keywords), keywords)
	p.logger.Info().Msg("planner: " + logMsg)

	return model.StagePatch{
		Keywords: &keywords,
		Logs:     []string{logMsg},
		Timing:   &model.StageTiming{Stage: "planner", Duration: elapsed},
	}, nil
}
