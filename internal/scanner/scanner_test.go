package scanner

import (
	"context"
	"testing"

	"DealScanner/internal/domain"
)

type namedAdapter struct {
	name   string
	method domain.CollectionMethod
}

func (a namedAdapter) Name() string                    { return a.name }
func (a namedAdapter) Method() domain.CollectionMethod { return a.method }
func (a namedAdapter) Collect(context.Context, Query) (Result, error) {
	return Result{}, nil
}

func TestRegistryBuildDispatchesOnVariant(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.RegisterFactory(domain.MethodRSS, func(spec SourceSpec) (Adapter, error) {
		feed := spec.(RSSFeed)
		return namedAdapter{name: "rss/" + Slug(feed.Source.Name), method: spec.Method()}, nil
	})

	adapter, err := reg.Build(RSSFeed{Source: domain.Source{Number: 2, Name: "Venture Square"}, FeedURL: "https://www.venturesquare.net/feed"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if adapter.Name() != "rss/venture-square" {
		t.Fatalf("unexpected name %q", adapter.Name())
	}
	if _, err := reg.Resolve("rss/venture-square"); err != nil {
		t.Fatalf("built adapter must be registered: %v", err)
	}

	if _, err := reg.Build(HTMLListing{Source: domain.Source{Number: 1, Name: "WOWTALE"}}); err == nil {
		t.Fatalf("expected error for a method without factory")
	}
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedAdapter{name: "search/naver", method: domain.MethodSearchAPI})
	reg.Register(namedAdapter{name: "html/wowtale", method: domain.MethodHTML})
	reg.Register(namedAdapter{name: "search/naver", method: domain.MethodSearchAPI})

	adapters := reg.Adapters()
	if len(adapters) != 2 || adapters[0].Name() != "search/naver" || adapters[1].Name() != "html/wowtale" {
		t.Fatalf("unexpected order: %v", adapters)
	}
}

func TestCostOrdersLLMLast(t *testing.T) {
	t.Parallel()

	if !(Cost(domain.MethodSearchAPI) < Cost(domain.MethodManual) && Cost(domain.MethodManual) < Cost(domain.MethodLLMGrounded)) {
		t.Fatalf("llm must be the most expensive adapter")
	}
	if !RunScoped(domain.MethodHTML) || !RunScoped(domain.MethodRSS) || RunScoped(domain.MethodSearchAPI) {
		t.Fatalf("unexpected scopes")
	}
	if got := ExpandTemplate("{company} 투자유치", "부스터스"); got != "부스터스 투자유치" {
		t.Fatalf("ExpandTemplate = %q", got)
	}
}
