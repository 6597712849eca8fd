package agents

import (
	"context"
	"fmt"
	"log"

	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

const outlinerSystemPrompt = `You are a podcast episode outliner. Expand the plan and research notes into
a detailed episode outline as markdown with these sections:

## Episode Overview
## Opening Hook
## Chapter Outlines
## Closing Segment
## Pacing Notes

Under Chapter Outlines, write one "### Chapter N: Title" subsection per
chapter with bulleted discussion points, a "Narrative Purpose:" line and a
"Duration: <N> words" line. Discussion points must be concrete enough for two
hosts to talk through without further research.`

// Outliner expands plan and research into chapter-level talking points.
type Outliner struct {
	rt      *Runtime
	profile Profile
}

// NewOutliner creates the outliner agent.
func NewOutliner(rt *Runtime, remoteAgentID string) *Outliner {
	return &Outliner{
		rt: rt,
		profile: Profile{
			Name:          "outliner",
			SystemPrompt:  outlinerSystemPrompt,
			Temperature:   0.6,
			RemoteAgentID: remoteAgentID,
		},
	}
}

// Execute produces the outline markdown and its parsed sections.
func (o *Outliner) Execute(ctx context.Context, planMD, researchMD string, chapters, targetWords int, style string) (string, script.Outline, error) {
	prompt := fmt.Sprintf(
		"Style: %s\nChapters: %d\nTotal word budget: %d words\n\n# Plan\n\n%s\n\n# Research Notes\n\n%s",
		style, chapters, targetWords, planMD, researchMD)

	content, err := o.rt.Execute(ctx, o.profile, prompt)
	if err != nil {
		return "", script.Outline{}, err
	}

	outline := script.ParseOutline(content)
	got := len(outline.ChapterSections())
	if diff := got - chapters; diff < -1 || diff > 1 {
		return "", script.Outline{}, NewStageError("outliner", types.ErrKindAgent,
			fmt.Errorf("outline has %d chapter sections, expected %d (±1)", got, chapters))
	}
	if got != chapters {
		log.Printf("Outliner: WARNING - outline has %d chapters, expected %d", got, chapters)
	}

	if est := outline.TotalWordEstimate(); est > 0 {
		balance := types.ClassifyAccuracy(targetWords, est)
		log.Printf("Outliner: section word estimates total %d of %d target (balance: %s)",
			est, targetWords, balance)
	}

	return content, outline, nil
}
