package advisor

import (
	"context"
	"fmt"

	"sendsmart/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// AdvisorService turns a finished timing score into a short
// plain-language explanation. It never changes the recommendation; it
// only narrates the numbers the predictor already produced.
type AdvisorService struct {
	tracer trace.Tracer
	llm    LLMClient
	model  string
}

func NewAdvisorService(tracer trace.Tracer, llm LLMClient, model string) *AdvisorService {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &AdvisorService{tracer: tracer, llm: llm, model: model}
}

// Narrate satisfies the predictor's Narrator seam. Errors bubble up so
// the caller can fall back to its heuristic reasoning string.
func (s *AdvisorService) Narrate(ctx context.Context, result domain.ScoreResult) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.narrate")
	defer span.End()
	span.SetAttributes(
		attribute.String("corridor", result.From+"_"+result.To),
		attribute.String("recommendation", string(result.Recommendation)),
	)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(narrationPhilosophy),
		openai.UserMessage(FormatScoreContext(result)),
	}

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
