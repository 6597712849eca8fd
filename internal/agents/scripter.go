package agents

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/devashishk/podcast-forge/internal/script"
)

const scripterSystemPrompt = `You are a podcast scriptwriter producing natural two-host dialogue. Write
every spoken line exactly as:

**Host 1:** <what host one says>
**Host 2:** <what host two says>

Host 1 leads the narrative; Host 2 reacts, questions and adds color. Vary
line lengths, keep the conversation flowing, and land each chapter's key
points. Finish with a "## Speaking Notes" block describing pacing and
emphasis for this chapter. Only the host lines count toward the word target.

%s`

// Style guidance blocks keyed by brief style; narrative falls through to
// storytelling.
var styleGuidance = map[string]string{
	"conversational": `Style: conversational. Relaxed and friendly, like two knowledgeable friends
talking. Frequent back-and-forth, light humor, plain language.`,
	"storytelling": `Style: storytelling. Host 1 carries a narrative arc with scene-setting and
tension; Host 2 reacts as the listener's surrogate. Build toward payoffs.`,
	"interview": `Style: interview. Host 1 acts as the interviewer asking probing questions;
Host 2 answers as the subject-matter expert with depth and anecdotes.`,
	"educational": `Style: educational. Structured explanations with definitions and examples.
Host 2 asks the clarifying questions a newcomer would ask.`,
}

// chapterTolerancePercent is the per-chapter word-count acceptance band.
const chapterTolerancePercent = 2.0

// ChapterScript is one chapter's dialogue plus its convergence record.
type ChapterScript struct {
	Chapter   int
	Markdown  string
	WordCount int
	Deviation float64
	Attempts  int
}

// Scripter produces two-host dialogue for one chapter, iterating to hit the
// word target.
type Scripter struct {
	rt            *Runtime
	remoteAgentID string
}

// NewScripter creates the scripter agent.
func NewScripter(rt *Runtime, remoteAgentID string) *Scripter {
	return &Scripter{rt: rt, remoteAgentID: remoteAgentID}
}

// Execute writes one chapter script. Up to 3 attempts; after each, the spoken
// word count is measured and a corrective directive appended to the prompt.
// After the final attempt the last response is accepted and the deviation
// recorded on the artifact.
func (s *Scripter) Execute(ctx context.Context, section script.Section, outlineContext, style string, targetWords int) (*ChapterScript, error) {
	guidance, ok := styleGuidance[style]
	if !ok {
		guidance = styleGuidance["storytelling"]
	}

	profile := Profile{
		Name:          fmt.Sprintf("scripter-ch%d", section.Number),
		SystemPrompt:  fmt.Sprintf(scripterSystemPrompt, guidance),
		Temperature:   0.8,
		RemoteAgentID: s.remoteAgentID,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the dialogue for chapter %d. Target: %d spoken words.\n\n", section.Number, targetWords)
	sb.WriteString(section.ChapterMarkdown())
	sb.WriteString("\nFull episode outline for context:\n\n")
	sb.WriteString(outlineContext)
	basePrompt := sb.String()

	var (
		content   string
		wordCount int
		deviation float64
	)
	directive := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		content, err = s.rt.Execute(ctx, profile, basePrompt+directive)
		if err != nil {
			return nil, err
		}

		wordCount = script.CountSpokenWords(content)
		deviation = script.DeviationPercent(targetWords, wordCount)

		if math.Abs(deviation) <= chapterTolerancePercent {
			return &ChapterScript{
				Chapter:   section.Number,
				Markdown:  content,
				WordCount: wordCount,
				Deviation: deviation,
				Attempts:  attempt,
			}, nil
		}

		direction := "condense"
		if wordCount < targetWords {
			direction = "expand"
		}
		log.Printf("Scripter: chapter %d attempt %d produced %d words of %d target (%.1f%%), asking to %s",
			section.Number, attempt, wordCount, targetWords, deviation, direction)
		directive = fmt.Sprintf(
			"\n\nYour previous draft had %d spoken words but %d are required. Rewrite the full chapter and %s the dialogue to land within 2%% of the target.",
			wordCount, targetWords, direction)
	}

	log.Printf("Scripter: WARNING - chapter %d accepted at %.1f%% deviation after %d attempts",
		section.Number, deviation, maxAttempts)
	return &ChapterScript{
		Chapter:   section.Number,
		Markdown:  content,
		WordCount: wordCount,
		Deviation: deviation,
		Attempts:  maxAttempts,
	}, nil
}
