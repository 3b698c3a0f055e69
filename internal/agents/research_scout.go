package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/executor"
)

// ResearchScout watches GitHub trending, arxiv, and newsletters, and
// produces a daily digest. Findings land in the shared memory namespace
// so other agents can build on them.
type ResearchScout struct {
	topics []string
}

func NewResearchScout(settings map[string]any) *ResearchScout {
	return &ResearchScout{
		topics: strSliceSetting(settings, "topics", []string{"LLM agents", "retrieval", "evaluation"}),
	}
}

func (r *ResearchScout) Name() string            { return "research_scout" }
func (r *ResearchScout) DefaultSchedule() string { return "daily at 7am" }

func (r *ResearchScout) Description() string {
	return "Monitors AI/ML research, GitHub trending, generates digests"
}

func (r *ResearchScout) BehaviorSpec() string {
	return fmt.Sprintf(
		"Scan GitHub trending, new arxiv papers, and subscribed feeds for developments in %s. Produce one digest of the day's notable items.",
		strings.Join(r.topics, ", "),
	)
}

func (r *ResearchScout) Operations() []string {
	return []string{
		"scrape_github_trending",
		"search_arxiv",
		"fetch_rss_feed",
		"summarize_content",
	}
}

func (r *ResearchScout) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	raw := tk.Execute(ctx, fmt.Sprintf(
		"Collect today's GitHub trending repositories and new arxiv papers related to: %s. List title and one-line summary for each.",
		strings.Join(r.topics, ", "),
	), executor.ComplexitySimple)

	digest := tk.Execute(ctx,
		"Summarize these findings into a short digest: group by theme, keep only the genuinely notable items, and note why each matters:\n"+raw,
		executor.ComplexityComplex)

	// Shared so the other agents can pull today's findings into their
	// own runs.
	if err := tk.Remember(ctx, digest, map[string]any{"kind": "research_digest"}, true); err != nil {
		return nil, fmt.Errorf("store digest: %w", err)
	}
	if err := tk.Notify(ctx, "Research digest:\n"+digest); err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	return digest, nil
}
