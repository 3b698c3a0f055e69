package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/executor"
)

// InboxManager triages email: categorizes, drafts replies, and
// escalates anything the operator should see now.
type InboxManager struct {
	categories []string
}

func NewInboxManager(settings map[string]any) *InboxManager {
	return &InboxManager{
		categories: strSliceSetting(settings, "categories", []string{"opportunity", "action_needed", "fyi", "spam"}),
	}
}

func (i *InboxManager) Name() string            { return "inbox_manager" }
func (i *InboxManager) DefaultSchedule() string { return "every 30 minutes" }

func (i *InboxManager) Description() string {
	return "Manages email inbox: categorizes, drafts replies, escalates"
}

func (i *InboxManager) BehaviorSpec() string {
	return fmt.Sprintf(
		"Triage unread email into %s. Draft replies for action_needed items and escalate opportunities to the operator immediately.",
		strings.Join(i.categories, "/"),
	)
}

func (i *InboxManager) Operations() []string {
	return []string{
		"fetch_unread_emails",
		"categorize_email",
		"research_sender",
		"draft_reply",
	}
}

func (i *InboxManager) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	triage := tk.Execute(ctx, fmt.Sprintf(
		"Fetch unread emails and categorize each into one of: %s. List sender, subject, and category.",
		strings.Join(i.categories, ", "),
	), executor.ComplexitySimple)

	drafts := tk.Execute(ctx,
		"For each action_needed email in this triage, draft a short reply. For each opportunity, write a one-line escalation note:\n"+triage,
		executor.ComplexityComplex)

	if strings.Contains(drafts, "opportunity") {
		if err := tk.Notify(ctx, "Inbox escalations:\n"+drafts); err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
	}
	if err := tk.Remember(ctx, triage, map[string]any{"kind": "inbox_triage"}, false); err != nil {
		return nil, fmt.Errorf("store triage: %w", err)
	}
	return drafts, nil
}
