package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

const plannerSystemPrompt = `You are a podcast episode planner. Given a topic brief, produce a complete
episode plan as markdown with these sections:

## Overview
## Target Audience
## Narrative Structure
## Chapter Breakdown
## Research Priorities
## Style Guidelines
## Success Metrics

The Chapter Breakdown must contain exactly the requested number of chapters,
each as a "### Chapter N: Title" subsection with these labeled lines:
- Duration: <N> words
- Key Points: followed by bulleted points
- Narrative Purpose: <one sentence>
- Research Focus: <one sentence>

Per-chapter word counts must sum to the requested total word budget.`

// plannerSections are checked leniently after a planner call.
var plannerSections = []string{"Overview", "Chapter Breakdown", "Research Priorities", "Style Guidelines"}

// Planner produces the episode plan (chapter skeleton with per-chapter word
// estimates) from the brief and its precomputed word budget.
type Planner struct {
	rt      *Runtime
	profile Profile
}

// NewPlanner creates the planner agent.
func NewPlanner(rt *Runtime, remoteAgentID string) *Planner {
	return &Planner{
		rt: rt,
		profile: Profile{
			Name:          "planner",
			SystemPrompt:  plannerSystemPrompt,
			Temperature:   0.7,
			RemoteAgentID: remoteAgentID,
		},
	}
}

// Execute produces the plan markdown and its parsed form.
func (p *Planner) Execute(ctx context.Context, brief types.Brief, budget types.WordBudget) (string, script.Plan, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", brief.Topic)
	if brief.Focus != "" {
		fmt.Fprintf(&sb, "Focus: %s\n", brief.Focus)
	}
	fmt.Fprintf(&sb, "Mood: %s\nStyle: %s\n", brief.Mood, brief.Style)
	fmt.Fprintf(&sb, "Chapters: %d\nDuration: %d minutes\n", brief.Chapters, brief.DurationMin)
	fmt.Fprintf(&sb, "Total word budget: %d words (about %d words per chapter)\n",
		budget.TotalWords, budget.PerChapter)

	content, err := p.rt.Execute(ctx, p.profile, sb.String())
	if err != nil {
		return "", script.Plan{}, err
	}

	missing := script.MissingSections(content, plannerSections)
	if len(missing) > 2 {
		return "", script.Plan{}, NewStageError("planner", types.ErrKindAgent,
			fmt.Errorf("plan is missing sections: %s", strings.Join(missing, ", ")))
	}
	if len(missing) > 0 {
		log.Printf("Planner: plan missing sections %v, proceeding", missing)
	}

	plan := script.ParsePlan(content)
	if len(plan.Chapters) != brief.Chapters {
		log.Printf("Planner: WARNING - plan has %d chapters, brief requested %d",
			len(plan.Chapters), brief.Chapters)
	}
	return content, plan, nil
}
