package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"DealScanner/internal/domain"
)

type countingSearch struct{ calls int }

func (c *countingSearch) Search(context.Context, string, int) ([]domain.SearchHit, error) {
	c.calls++
	return []domain.SearchHit{{Title: "hit"}}, nil
}

type fixedLLM struct {
	tokens  int
	lastMax int
}

func (f *fixedLLM) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	f.lastMax = req.MaxTokens
	return domain.Completion{Text: "ok", TokensUsed: f.tokens}, nil
}

func TestSearchWrapperHonoursQuota(t *testing.T) {
	t.Parallel()

	inner := &countingSearch{}
	client := Search(inner, New(Limits{MinInterval: time.Millisecond}), "search/naver", NewQuota("search", 2))

	for i := 0; i < 2; i++ {
		if _, err := client.Search(context.Background(), "q", 10); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}
	if _, err := client.Search(context.Background(), "q", 10); !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("exhausted quota must not reach the client, calls=%d", inner.calls)
	}
}

func TestBudgetedLLMStopsAfterBudget(t *testing.T) {
	t.Parallel()

	inner := &fixedLLM{tokens: 600}
	budget := NewTokenBudget(1000)
	client := Budgeted(LLM(inner, New(Limits{MinInterval: time.Millisecond}), "llm", nil, time.Second), budget)

	if _, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "a", MaxTokens: 2000}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if inner.lastMax != 1000 {
		t.Fatalf("max tokens should be capped to the budget, got %d", inner.lastMax)
	}
	if _, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "b", MaxTokens: 300}); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if inner.lastMax != 300 {
		t.Fatalf("smaller request must be kept, got %d", inner.lastMax)
	}
	if _, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "c"}); !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if budget.Used() != 1200 {
		t.Fatalf("used = %d", budget.Used())
	}
}

func TestCompanyBudgetedUsesContextBudget(t *testing.T) {
	t.Parallel()

	inner := &fixedLLM{tokens: 400}
	client := CompanyBudgeted(inner)

	if _, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "free", MaxTokens: 50}); err != nil {
		t.Fatalf("unmetered call: %v", err)
	}
	if inner.lastMax != 50 {
		t.Fatalf("calls without a budget must pass through, got max %d", inner.lastMax)
	}

	budget := NewTokenBudget(500)
	ctx := WithTokenBudget(context.Background(), budget)
	if BudgetFrom(ctx) != budget {
		t.Fatal("budget not attached to context")
	}
	for i := 0; i < 2; i++ {
		if _, err := client.Complete(ctx, domain.CompletionRequest{Prompt: "x"}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := client.Complete(ctx, domain.CompletionRequest{Prompt: "x"}); !errors.Is(err, domain.ErrBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
}
