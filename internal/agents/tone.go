package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

const toneSystemPrompt = `You are a podcast delivery director. Annotate every host line of the script
with exactly one tone tag, chosen from this set:

%s

The tag goes strictly between the speaker colon and the spoken text:

**Host 1:** [curious] So how did this all begin?

Never place the tag anywhere else and never invent tones outside the set.
Choose tones that fit the episode mood (%s) and style (%s), and shape a
natural emotional arc across the episode. Return the complete annotated
script; keep chapter headings, drop everything that is not a heading or a
host line.`

// ToneAnnotator assigns per-utterance emotion labels and splits host lines
// into sentence-level utterances.
type ToneAnnotator struct {
	rt      *Runtime
	profile Profile
}

// NewToneAnnotator creates the tone annotator agent.
func NewToneAnnotator(rt *Runtime, remoteAgentID string) *ToneAnnotator {
	return &ToneAnnotator{
		rt: rt,
		profile: Profile{
			Name:          "tone",
			Temperature:   0.4,
			RemoteAgentID: remoteAgentID,
		},
	}
}

// Execute annotates the joined chapter scripts and parses the result into
// utterances. Parsing is tolerant of the legacy tag shape and of missing
// tags (tones are then inferred from content).
func (t *ToneAnnotator) Execute(ctx context.Context, chapterScripts []string, mood, style string) (string, []script.Utterance, error) {
	profile := t.profile
	profile.SystemPrompt = fmt.Sprintf(toneSystemPrompt,
		strings.Join(types.AllowedTones, ", "), mood, style)

	content, err := t.rt.Execute(ctx, profile, JoinChapterScripts(chapterScripts))
	if err != nil {
		return "", nil, err
	}

	utterances := script.ParseToneScript(content)
	if len(utterances) == 0 {
		return "", nil, NewStageError("tone", types.ErrKindAgent,
			fmt.Errorf("no utterances could be parsed from tone script"))
	}

	arc := script.AnalyzeArc(utterances)
	log.Printf("Tone: %d utterances, emotional arc %s → %s → %s",
		len(utterances), arc.Opening, arc.Middle, arc.Closing)

	return content, utterances, nil
}

// JoinChapterScripts concatenates chapter scripts under "## Chapter N"
// headings, stripping per-chapter speaking-notes blocks.
func JoinChapterScripts(chapterScripts []string) string {
	var sb strings.Builder
	for i, cs := range chapterScripts {
		fmt.Fprintf(&sb, "## Chapter %d\n\n", i+1)
		sb.WriteString(stripSpeakingNotes(cs))
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String()) + "\n"
}

// stripSpeakingNotes removes the trailing speaking-notes block a chapter
// script carries for the scripter's own use.
func stripSpeakingNotes(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var kept []string
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			skipping = strings.Contains(strings.ToLower(trimmed), "speaking notes")
			if skipping {
				continue
			}
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
