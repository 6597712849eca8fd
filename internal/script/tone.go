package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/devashishk/podcast-forge/internal/types"
)

// Utterance is a single sentence bound to one speaker and one tone. It is
// the unit of text-to-speech synthesis.
type Utterance struct {
	Index            int     `json:"index"`
	Speaker          string  `json:"speaker"`
	Tone             string  `json:"tone"`
	Text             string  `json:"text"`
	WordCount        int     `json:"word_count"`
	EstimatedSeconds float64 `json:"estimated_seconds"`
}

var (
	tonedHostRe  = regexp.MustCompile(`^\*\*Host\s*([12])\s*:\*\*\s*\[([A-Za-z]+)\]\s*(.+)$`)
	legacyToneRe = regexp.MustCompile(`^\*\*\[?([A-Za-z]+)\]?\*\*\s*(.+)$`)
)

// ParseToneScript parses a tone-annotated script into sentence-level
// utterances. Host lines are parsed first: a recognized `**Host N:** [tone]`
// tag is taken verbatim, and a line with a missing or unknown tag keeps its
// dialogue with the tone inferred from content — a dialogue line is never
// silently dropped. Scripts in the legacy `**[tone]** text` shape carry no
// host labels and fall through to the alternating-speaker pass.
func ParseToneScript(markdown string) []Utterance {
	if utts := parseHostLines(markdown); len(utts) > 0 {
		return utts
	}
	return parseLegacyToneLines(markdown)
}

// parseHostLines captures every `**Host N:**` dialogue line, tagged or not.
func parseHostLines(markdown string) []Utterance {
	var utts []Utterance
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := tonedHostRe.FindStringSubmatch(trimmed); m != nil {
			if tone := strings.ToLower(m[2]); types.IsKnownTone(tone) {
				utts = appendSentences(utts, speakerName(m[1]), tone, m[3])
				continue
			}
			// Unknown tag: fall through and keep the line with an inferred tone.
		}

		n, text, ok := IsHostLine(trimmed)
		if !ok {
			continue
		}
		text = strings.TrimSpace(bracketRe.ReplaceAllString(text, " "))
		if text == "" {
			continue
		}
		utts = appendSentences(utts, speakerName(strconv.Itoa(n)), InferTone(text), text)
	}
	return utts
}

// parseLegacyToneLines handles the `**[tone]** text` shape. The source format
// carries no host labels, so speakers alternate starting from host1.
func parseLegacyToneLines(markdown string) []Utterance {
	var utts []Utterance
	speaker := types.SpeakerHost1
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if tonedHostRe.MatchString(trimmed) || hostLineRe.MatchString(trimmed) {
			continue
		}
		m := legacyToneRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		tone := strings.ToLower(m[1])
		if !types.IsKnownTone(tone) {
			continue
		}
		utts = appendSentences(utts, speaker, tone, m[2])
		if speaker == types.SpeakerHost1 {
			speaker = types.SpeakerHost2
		} else {
			speaker = types.SpeakerHost1
		}
	}
	return utts
}

// appendSentences splits a block of dialogue into sentences sharing the same
// speaker and tone, and indexes them in parse order.
func appendSentences(utts []Utterance, speaker, tone, text string) []Utterance {
	for _, sentence := range SplitSentences(text) {
		wc := CountUtteranceWords(sentence)
		if wc == 0 {
			continue
		}
		utts = append(utts, Utterance{
			Index:            len(utts),
			Speaker:          speaker,
			Tone:             tone,
			Text:             sentence,
			WordCount:        wc,
			EstimatedSeconds: float64(wc) / 2.5,
		})
	}
	return utts
}

func speakerName(n string) string {
	if n == "2" {
		return types.SpeakerHost2
	}
	return types.SpeakerHost1
}

var (
	excitedWords    = []string{"amazing", "incredible", "fantastic", "awesome", "best", "greatest"}
	curiousWords    = []string{"wonder", "imagine", "curious", "what if"}
	reflectiveWords = []string{"however", "consider", "reflect"}
	skepticalWords  = []string{"doubt", "really", "sure"}
	seriousWords    = []string{"serious", "critical", "important"}
)

// InferTone derives a tone from the content of a line when the model emitted
// no usable tag.
func InferTone(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "!") || containsAny(lower, excitedWords):
		return "excited"
	case strings.Contains(text, "?") || containsAny(lower, curiousWords):
		return "curious"
	case containsAny(lower, reflectiveWords):
		return "reflective"
	case containsAny(lower, skepticalWords):
		return "skeptical"
	case containsAny(lower, seriousWords):
		return "serious"
	default:
		return "calm"
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// FormatUtterance renders the canonical dialogue line for an utterance.
func FormatUtterance(u Utterance) string {
	host := "Host 1"
	if u.Speaker == types.SpeakerHost2 {
		host = "Host 2"
	}
	return fmt.Sprintf("**%s:** [%s] %s", host, u.Tone, u.Text)
}

// TotalSpokenWords sums the word counts of a parsed utterance sequence.
func TotalSpokenWords(utts []Utterance) int {
	total := 0
	for _, u := range utts {
		total += u.WordCount
	}
	return total
}

// EmotionalArc describes the dominant tone per third of the sequence. It is
// advisory metadata, not an invariant.
type EmotionalArc struct {
	Opening string `json:"opening"`
	Middle  string `json:"middle"`
	Closing string `json:"closing"`
}

// AnalyzeArc computes the dominant tone of each third of the utterances.
func AnalyzeArc(utts []Utterance) EmotionalArc {
	if len(utts) == 0 {
		return EmotionalArc{}
	}
	third := len(utts) / 3
	if third == 0 {
		third = 1
	}
	return EmotionalArc{
		Opening: dominantTone(utts[:min(third, len(utts))]),
		Middle:  dominantTone(utts[min(third, len(utts)):min(2*third, len(utts))]),
		Closing: dominantTone(utts[min(2*third, len(utts)):]),
	}
}

func dominantTone(utts []Utterance) string {
	if len(utts) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, u := range utts {
		counts[u.Tone]++
	}
	best, bestN := "", 0
	for _, u := range utts {
		if counts[u.Tone] > bestN {
			best, bestN = u.Tone, counts[u.Tone]
		}
	}
	return best
}
