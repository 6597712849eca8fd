package script

import (
	"regexp"
	"strings"
)

// HasSection reports whether the markdown contains a header whose text
// includes name (case-insensitive). Headers are ##/### lines or bolded
// standalone titles, which is all the model backends reliably emit.
func HasSection(markdown, name string) bool {
	name = strings.ToLower(name)
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		var title string
		switch {
		case strings.HasPrefix(trimmed, "#"):
			title = strings.TrimLeft(trimmed, "# ")
		case strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**"):
			title = strings.Trim(trimmed, "* ")
		default:
			continue
		}
		if strings.Contains(strings.ToLower(title), name) {
			return true
		}
	}
	return false
}

// MissingSections returns the subset of names with no matching header.
func MissingSections(markdown string, names []string) []string {
	var missing []string
	for _, n := range names {
		if !HasSection(markdown, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// SectionBody returns the text between the header matching name and the next
// header of the same or higher level, or "" when the section is absent.
func SectionBody(markdown, name string) string {
	lines := strings.Split(markdown, "\n")
	lower := strings.ToLower(name)
	level := 0
	start := -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		l := headerLevel(trimmed)
		title := strings.ToLower(strings.TrimLeft(trimmed, "# "))
		if start < 0 && strings.Contains(title, lower) {
			start = i + 1
			level = l
			continue
		}
		if start >= 0 && l <= level {
			return strings.TrimSpace(strings.Join(lines[start:i], "\n"))
		}
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func headerLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	return n
}

var bulletRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+(.*)$`)

// Bullets extracts the text of every bulleted line in the block.
func Bullets(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

// LabeledValue finds "Label: value" inside a block, tolerating bullets and
// bold markers around the label.
func LabeledValue(block, label string) string {
	lower := strings.ToLower(label)
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "-*+ ")
		trimmed = strings.ReplaceAll(trimmed, "**", "")
		idx := strings.Index(strings.ToLower(trimmed), lower)
		if idx < 0 {
			continue
		}
		rest := trimmed[idx+len(label):]
		rest = strings.TrimLeft(rest, ": ")
		if rest != "" {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
