package advisor

import (
	"context"
	"errors"
	"testing"

	"sendsmart/internal/domain"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace"
)

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error

	lastParams openai.ChatCompletionNewParams
	calls      int
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.calls++
	s.lastParams = params
	return s.response, s.err
}

func sampleResult() domain.ScoreResult {
	return domain.ScoreResult{
		From:            "USD",
		To:              "INR",
		CurrentRate:     83.421,
		TimingScore:     0.78,
		ModelProb:       0.81,
		RangePercentile: 0.9,
		Confidence:      0.6,
		Recommendation:  domain.RecommendationSendNow,
		MarketSummary: domain.MarketSummary{
			TwoMonthHigh: 83.9,
			TwoMonthLow:  82.1,
			TwoMonthAvg:  83.0,
			Trend:        domain.TrendUp,
			Volatility:   domain.VolatilityLow,
		},
	}
}

func TestNarrateHappyPath(t *testing.T) {
	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Send now, the rate is near its two-month high."}},
			},
		},
	}
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), llm, "gpt-4o-mini")

	reply, err := svc.Narrate(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Send now, the rate is near its two-month high." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if llm.calls != 1 {
		t.Fatalf("expected one LLM call, got %d", llm.calls)
	}
	if len(llm.lastParams.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(llm.lastParams.Messages))
	}
}

func TestNarrateLLMError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), llm, "gpt-4o-mini")

	if _, err := svc.Narrate(context.Background(), sampleResult()); err == nil {
		t.Fatal("expected error from LLM failure")
	}
}

func TestNarrateEmptyChoices(t *testing.T) {
	llm := &stubLLMClient{response: &openai.ChatCompletion{}}
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), llm, "gpt-4o-mini")

	if _, err := svc.Narrate(context.Background(), sampleResult()); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNewAdvisorServiceDefaultModel(t *testing.T) {
	svc := NewAdvisorService(trace.NewNoopTracerProvider().Tracer("test"), &stubLLMClient{}, "")
	if svc.model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", svc.model)
	}
}
