package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/executor"
)

// JobHunter searches job boards, scores postings against the operator's
// preferences, and drafts application material.
type JobHunter struct {
	roles  []string
	boards []string
}

func NewJobHunter(settings map[string]any) *JobHunter {
	return &JobHunter{
		roles:  strSliceSetting(settings, "target_roles", []string{"Data Analyst", "AI Engineer"}),
		boards: strSliceSetting(settings, "boards", []string{"linkedin", "wellfound", "greenhouse"}),
	}
}

func (j *JobHunter) Name() string            { return "job_hunter" }
func (j *JobHunter) DefaultSchedule() string { return "every 6 hours" }

func (j *JobHunter) Description() string {
	return "Searches for jobs, matches against preferences, and drafts applications"
}

func (j *JobHunter) BehaviorSpec() string {
	return fmt.Sprintf(
		"Find openings matching the target roles (%s) across %s, score each against the operator's profile, and prepare application drafts for the strongest matches.",
		strings.Join(j.roles, ", "), strings.Join(j.boards, ", "),
	)
}

func (j *JobHunter) Operations() []string {
	return []string{
		"search_job_boards",
		"analyze_job_fit",
		"generate_cover_letter",
		"check_application_status",
	}
}

func (j *JobHunter) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	past, err := tk.Recall(ctx, "job application", 5, false)
	if err != nil {
		return nil, fmt.Errorf("recall past applications: %w", err)
	}

	search := tk.Execute(ctx, fmt.Sprintf(
		"Search %s for open %s roles posted in the last day. Return title, company, and link for each.",
		strings.Join(j.boards, ", "), strings.Join(j.roles, " or "),
	), executor.ComplexitySimple)

	analysis := tk.Execute(ctx, fmt.Sprintf(
		"Analyze these postings against the operator's profile and %d past applications. Rank the top matches and flag any company already applied to:\n%s",
		len(past), search,
	), executor.ComplexityComplex)

	if err := tk.Remember(ctx, analysis, map[string]any{"kind": "job_scan"}, false); err != nil {
		return nil, fmt.Errorf("store scan results: %w", err)
	}
	if err := tk.Notify(ctx, "Job scan complete:\n"+analysis); err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	return analysis, nil
}
