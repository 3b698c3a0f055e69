package agents

import (
	"context"
	"fmt"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/executor"
)

// SocialMedia drafts posts and tracks engagement across platforms.
type SocialMedia struct {
	niche     string
	platforms []string
}

func NewSocialMedia(settings map[string]any) *SocialMedia {
	return &SocialMedia{
		niche:     strSetting(settings, "niche", "AI"),
		platforms: strSliceSetting(settings, "platforms", []string{"twitter", "linkedin"}),
	}
}

func (s *SocialMedia) Name() string            { return "social_media" }
func (s *SocialMedia) DefaultSchedule() string { return "3x daily" }

func (s *SocialMedia) Description() string {
	return "Manages social media presence: drafts, posts, monitors engagement"
}

func (s *SocialMedia) BehaviorSpec() string {
	return fmt.Sprintf(
		"Keep the operator's %v presence active in the %s niche. Draft posts on trending topics and report engagement. Publishing a post requires approval.",
		s.platforms, s.niche,
	)
}

func (s *SocialMedia) Operations() []string {
	return []string{
		"draft_post",
		"search_trending_topics",
		"schedule_post",
		"check_engagement",
		"find_relevant_content",
	}
}

func (s *SocialMedia) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	trending := tk.Execute(ctx,
		fmt.Sprintf("Find 3 trending topics in the %s niche worth posting about today.", s.niche),
		executor.ComplexitySimple)

	recent, err := tk.Recall(ctx, "published post", 10, false)
	if err != nil {
		return nil, fmt.Errorf("recall recent posts: %w", err)
	}

	draft := tk.Execute(ctx, fmt.Sprintf(
		"Draft one post per platform (%v) on the best of these topics, avoiding overlap with the %d most recent posts:\n%s",
		s.platforms, len(recent), trending,
	), executor.ComplexityComplex)

	approved, err := tk.RequestApproval(ctx, "schedule_post", draft)
	if err != nil {
		return nil, fmt.Errorf("request post approval: %w", err)
	}
	if !approved {
		return "drafts prepared, publishing declined", nil
	}

	if err := tk.Remember(ctx, draft, map[string]any{"kind": "published_post"}, false); err != nil {
		return nil, fmt.Errorf("store post drafts: %w", err)
	}
	return draft, nil
}
