package agents

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

const editorSystemPrompt = `You are a podcast script editor doing the final pass on a tone-annotated
two-host script. Your job:

1. Bring the total spoken word count to the stated target.
2. Preserve every host label and every [tone] tag in its position between
   the speaker colon and the text.
3. Keep every "## Chapter N" heading exactly where it is; never merge,
   renumber or drop a chapter.
4. Smooth transitions between chapters and tighten weak lines.
5. Keep the episode mood (%s) and style (%s).

Return the complete edited script. Never leave placeholders or notes to self.`

// editorLenientGatePercent is the post-edit deviation beyond which a warning
// is logged. It is a gate, not a failure.
const editorLenientGatePercent = 15.0

// minFinalScriptLength guards against a degenerate editor response.
const minFinalScriptLength = 100

// Editor performs the final word-count convergence pass.
type Editor struct {
	rt            *Runtime
	remoteAgentID string
}

// NewEditor creates the editor agent.
func NewEditor(rt *Runtime, remoteAgentID string) *Editor {
	return &Editor{rt: rt, remoteAgentID: remoteAgentID}
}

// Execute edits the tone script toward the target word count. Up to 3
// attempts with corrective feedback, mirroring the scripter's loop.
func (e *Editor) Execute(ctx context.Context, toneScript string, targetWords int, tolerancePercent float64, style, mood string) (string, error) {
	profile := Profile{
		Name:          "editor",
		SystemPrompt:  fmt.Sprintf(editorSystemPrompt, mood, style),
		Temperature:   0.4,
		RemoteAgentID: e.remoteAgentID,
	}

	wantHeadings := script.CountChapterHeadings(toneScript)
	current := toneScript
	content := toneScript

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		words := script.CountSpokenWords(current)
		delta := targetWords - words
		deviation := script.DeviationPercent(targetWords, words)

		if attempt == 1 && math.Abs(deviation) <= tolerancePercent {
			log.Printf("Editor: script already within %.0f%% of target, single polish pass", tolerancePercent)
		}

		direction := "condense"
		if delta > 0 {
			direction = "expand"
		}
		prompt := fmt.Sprintf(
			"Target: %d spoken words. The script currently has %d spoken words; %s the dialogue by about %d words while editing.\n\n%s",
			targetWords, words, direction, abs(delta), current)

		var err error
		content, err = e.rt.Execute(ctx, profile, prompt)
		if err != nil {
			return "", err
		}

		if err := e.structuralCheck(content); err != nil {
			return "", err
		}

		got := script.CountSpokenWords(content)
		deviation = script.DeviationPercent(targetWords, got)
		if math.Abs(deviation) <= tolerancePercent {
			e.postValidate(content, targetWords, wantHeadings)
			return content, nil
		}

		log.Printf("Editor: attempt %d produced %d words of %d target (%.1f%%)",
			attempt, got, targetWords, deviation)
		current = content
	}

	e.postValidate(content, targetWords, wantHeadings)
	return content, nil
}

// structuralCheck rejects degenerate editor output.
func (e *Editor) structuralCheck(content string) error {
	if len(content) < minFinalScriptLength {
		return NewStageError("editor", types.ErrKindAgent,
			fmt.Errorf("edited script is too short (%d chars)", len(content)))
	}
	if strings.Contains(content, "TODO") || strings.Contains(content, "[INSERT") {
		return NewStageError("editor", types.ErrKindAgent,
			fmt.Errorf("edited script contains placeholder markers"))
	}
	return nil
}

// postValidate logs the lenient final-gate warnings; it never fails the job.
func (e *Editor) postValidate(content string, targetWords, wantHeadings int) {
	words := script.CountSpokenWords(content)
	deviation := script.DeviationPercent(targetWords, words)
	if math.Abs(deviation) > editorLenientGatePercent {
		log.Printf("Editor: WARNING - final script is %.1f%% off the %d word target", deviation, targetWords)
	}

	tags := strings.Count(content, "] ")
	if !strings.Contains(content, "[") || tags == 0 {
		log.Printf("Editor: WARNING - final script carries no tone tags")
	}

	if got := script.CountChapterHeadings(content); wantHeadings > 0 && got < wantHeadings {
		log.Printf("Editor: WARNING - edited script has %d chapter headings, expected %d; chapter segmentation may collapse",
			got, wantHeadings)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
