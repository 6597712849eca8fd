package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/devashishk/podcast-forge/internal/fetcher"
	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

const researcherSystemPrompt = `You are a podcast researcher. Produce factual research notes as markdown
with at minimum these sections:

## Executive Summary
## Key Facts & Statistics
## Main Themes & Perspectives

Ground every fact; prefer concrete numbers, dates and names. Organize
additional findings under further sections as useful. Do not write dialogue.`

// minSourceWords is the threshold below which fetched source material is
// considered unusable and research falls back to the model.
const minSourceWords = 50

var researcherSections = []string{"Executive Summary", "Key Facts", "Themes"}

// ContentFetcher retrieves grounding material for a brief source.
type ContentFetcher interface {
	Fetch(ctx context.Context, source string) (*fetcher.Content, error)
}

// Researcher produces factual notes, or wraps supplied source text.
type Researcher struct {
	rt      *Runtime
	fetcher ContentFetcher
	profile Profile
}

// NewResearcher creates the researcher agent. fetcher may be nil.
func NewResearcher(rt *Runtime, f ContentFetcher, remoteAgentID string) *Researcher {
	return &Researcher{
		rt:      rt,
		fetcher: f,
		profile: Profile{
			Name:          "researcher",
			SystemPrompt:  researcherSystemPrompt,
			Temperature:   0.3,
			RemoteAgentID: remoteAgentID,
		},
	}
}

// Execute produces the research notes markdown. When the brief carries a
// fetchable source with enough material, the notes wrap it deterministically
// and no model call is made.
func (r *Researcher) Execute(ctx context.Context, brief types.Brief, plan script.Plan) (string, error) {
	if brief.Source != "" && r.fetcher != nil {
		content, err := r.fetcher.Fetch(ctx, brief.Source)
		if err != nil {
			log.Printf("Researcher: source fetch failed (%v), falling back to model research", err)
		} else if content.WordCount >= minSourceWords {
			log.Printf("Researcher: using supplied source (%d words), no model call", content.WordCount)
			return wrapSource(brief.Topic, content), nil
		} else {
			log.Printf("Researcher: source too short (%d words), falling back to model research", content.WordCount)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Research the topic: %s\n", brief.Topic)
	if brief.Focus != "" {
		fmt.Fprintf(&sb, "Focus area: %s\n", brief.Focus)
	}
	if len(plan.Chapters) > 0 {
		sb.WriteString("\nCover the research focus of each planned chapter:\n")
		for _, ch := range plan.Chapters {
			if ch.ResearchFocus != "" {
				fmt.Fprintf(&sb, "- Chapter %d (%s): %s\n", ch.Number, ch.Title, ch.ResearchFocus)
			} else {
				fmt.Fprintf(&sb, "- Chapter %d: %s\n", ch.Number, ch.Title)
			}
		}
	}

	content, err := r.rt.Execute(ctx, r.profile, sb.String())
	if err != nil {
		return "", err
	}

	missing := script.MissingSections(content, researcherSections)
	if len(missing) > 2 {
		return "", NewStageError("researcher", types.ErrKindAgent,
			fmt.Errorf("research notes missing sections: %s", strings.Join(missing, ", ")))
	}
	if len(missing) > 0 {
		log.Printf("Researcher: notes missing sections %v, proceeding", missing)
	}
	return content, nil
}

// wrapSource builds research notes from fetched material under a fixed
// preamble. The title and body are included verbatim.
func wrapSource(topic string, content *fetcher.Content) string {
	var sb strings.Builder
	sb.WriteString("# Research Notes\n\n")
	sb.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&sb, "Research for this episode on %q is grounded in the supplied source material below (%d words).\n\n",
		topic, content.WordCount)
	sb.WriteString("## Key Facts & Statistics\n\n")
	fmt.Fprintf(&sb, "Drawn directly from: %s\n\n", content.Source)
	sb.WriteString("## Main Themes & Perspectives\n\n")
	if content.Title != "" {
		fmt.Fprintf(&sb, "### %s\n\n", content.Title)
	}
	sb.WriteString(content.Content)
	sb.WriteString("\n")
	return sb.String()
}
