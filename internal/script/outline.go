package script

import (
	"strconv"
	"strings"
)

// Section kinds within an outline
const (
	SectionOpening = "opening"
	SectionChapter = "chapter"
	SectionClosing = "closing"
)

// Section is one ordered unit of the episode outline.
type Section struct {
	Kind         string
	Number       int // chapter number, 0 for opening/closing
	Title        string
	Points       []string
	Purpose      string
	WordEstimate int
}

// Outline is the parsed outliner output: one opening, N chapters, one closing.
type Outline struct {
	Sections []Section
	Raw      string
}

// ParseOutline extracts the ordered sections from outline markdown.
func ParseOutline(markdown string) Outline {
	outline := Outline{Raw: markdown}

	if body := SectionBody(markdown, "Opening Hook"); body != "" {
		outline.Sections = append(outline.Sections, Section{
			Kind:    SectionOpening,
			Title:   "Opening Hook",
			Points:  Bullets(body),
			Purpose: LabeledValue(body, "Narrative Purpose"),
		})
	}

	locs := chapterHeaderRe.FindAllStringSubmatchIndex(markdown, -1)
	for i, loc := range locs {
		end := len(markdown)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		} else if idx := nextTopSection(markdown, loc[1]); idx > 0 {
			end = idx
		}
		block := markdown[loc[1]:end]

		number, _ := strconv.Atoi(markdown[loc[2]:loc[3]])
		outline.Sections = append(outline.Sections, Section{
			Kind:         SectionChapter,
			Number:       number,
			Title:        strings.Trim(strings.TrimSpace(markdown[loc[4]:loc[5]]), "*"),
			Points:       Bullets(block),
			Purpose:      LabeledValue(block, "Narrative Purpose"),
			WordEstimate: wordEstimate(block),
		})
	}

	if body := SectionBody(markdown, "Closing Segment"); body != "" {
		outline.Sections = append(outline.Sections, Section{
			Kind:   SectionClosing,
			Title:  "Closing Segment",
			Points: Bullets(body),
		})
	}

	return outline
}

// nextTopSection finds the next ## header after pos, so the last chapter block
// doesn't swallow the closing segment.
func nextTopSection(markdown string, pos int) int {
	rest := markdown[pos:]
	for _, marker := range []string{"\n## "} {
		if idx := strings.Index(rest, marker); idx >= 0 {
			return pos + idx
		}
	}
	return -1
}

func wordEstimate(block string) int {
	if m := wordEstimateRe.FindStringSubmatch(block); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// ChapterSections returns only the chapter sections in order.
func (o Outline) ChapterSections() []Section {
	var chapters []Section
	for _, s := range o.Sections {
		if s.Kind == SectionChapter {
			chapters = append(chapters, s)
		}
	}
	return chapters
}

// ChapterMarkdown renders a chapter section back to markdown for use as a
// scripter input.
func (s Section) ChapterMarkdown() string {
	var sb strings.Builder
	sb.WriteString("### Chapter " + strconv.Itoa(s.Number))
	if s.Title != "" {
		sb.WriteString(": " + s.Title)
	}
	sb.WriteString("\n\n")
	if s.Purpose != "" {
		sb.WriteString("- Narrative Purpose: " + s.Purpose + "\n")
	}
	for _, p := range s.Points {
		sb.WriteString("- " + p + "\n")
	}
	return sb.String()
}

// TotalWordEstimate sums the section word estimates.
func (o Outline) TotalWordEstimate() int {
	total := 0
	for _, s := range o.Sections {
		total += s.WordEstimate
	}
	return total
}
