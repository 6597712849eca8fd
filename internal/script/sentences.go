package script

import "strings"

// abbreviations that end with a period without ending a sentence
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "i.e": true, "e.g": true,
}

// SplitSentences splits dialogue text into sentences. A sentence ends at
// '.', '!' or '?' (plus trailing quotes) unless the preceding token is a
// known abbreviation. The unit of TTS is always a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(strings.TrimSpace(text))
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		if r == '.' && isAbbreviation(runes, start, i) {
			continue
		}

		// Consume trailing terminators and closing quotes
		end := i + 1
		for end < len(runes) && (runes[end] == '.' || runes[end] == '!' || runes[end] == '?' ||
			runes[end] == '"' || runes[end] == '\'' || runes[end] == '”' || runes[end] == '’') {
			end++
		}

		// Not a boundary mid-token (e.g. "3.5" or a URL)
		if end < len(runes) && runes[end] != ' ' && runes[end] != '\t' && runes[end] != '\n' {
			i = end - 1
			continue
		}

		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// isAbbreviation checks whether the token ending at the period at position i
// is in the abbreviation set, so the period does not terminate the sentence.
func isAbbreviation(runes []rune, start, i int) bool {
	wordStart := i
	for wordStart > start && runes[wordStart-1] != ' ' && runes[wordStart-1] != '\t' && runes[wordStart-1] != '\n' {
		wordStart--
	}
	token := strings.ToLower(string(runes[wordStart:i]))
	token = strings.TrimLeft(token, "(\"'“‘")
	if abbreviations[token] {
		return true
	}
	// Single letters are initials, and the leading halves of "i.e."/"e.g."
	if len([]rune(token)) == 1 {
		return true
	}
	token = strings.TrimSuffix(token, ".")
	return abbreviations[token]
}
