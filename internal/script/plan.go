package script

import (
	"regexp"
	"strconv"
	"strings"
)

// Plan is the parsed form of the planner's markdown output.
type Plan struct {
	Chapters []PlanChapter
}

// PlanChapter is one entry of the Chapter Breakdown section.
type PlanChapter struct {
	Number        int
	Title         string
	WordEstimate  int
	KeyPoints     []string
	Purpose       string
	ResearchFocus string
}

var (
	chapterHeaderRe = regexp.MustCompile(`(?m)^(?:#{2,4}\s*|\*\*)Chapter\s+(\d+)\s*[:.\-]?\s*(.*?)(?:\*\*)?\s*$`)
	wordEstimateRe  = regexp.MustCompile(`(\d+)\s*words?`)
)

// ParsePlan extracts the chapter breakdown from plan markdown. Parsing is
// tolerant: a chapter with missing fields still yields an entry so downstream
// stages can adapt.
func ParsePlan(markdown string) Plan {
	var plan Plan

	// Scope to the breakdown section when present so trailing sections
	// (Research Priorities, Style Guidelines) don't bleed into the last chapter.
	if body := SectionBody(markdown, "Chapter Breakdown"); body != "" {
		markdown = body
	}

	locs := chapterHeaderRe.FindAllStringSubmatchIndex(markdown, -1)
	for i, loc := range locs {
		end := len(markdown)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := markdown[loc[1]:end]

		number, _ := strconv.Atoi(markdown[loc[2]:loc[3]])
		title := strings.Trim(strings.TrimSpace(markdown[loc[4]:loc[5]]), "*")

		ch := PlanChapter{
			Number:        number,
			Title:         title,
			Purpose:       LabeledValue(block, "Narrative Purpose"),
			ResearchFocus: LabeledValue(block, "Research Focus"),
		}

		if m := wordEstimateRe.FindStringSubmatch(LabeledValue(block, "Duration")); m != nil {
			ch.WordEstimate, _ = strconv.Atoi(m[1])
		} else if m := wordEstimateRe.FindStringSubmatch(block); m != nil {
			ch.WordEstimate, _ = strconv.Atoi(m[1])
		}

		if kp := SectionBody(block, "Key Points"); kp != "" {
			ch.KeyPoints = Bullets(kp)
		} else if v := LabeledValue(block, "Key Points"); v != "" {
			for _, p := range strings.Split(v, ";") {
				if p = strings.TrimSpace(p); p != "" {
					ch.KeyPoints = append(ch.KeyPoints, p)
				}
			}
		}
		if len(ch.KeyPoints) == 0 {
			ch.KeyPoints = Bullets(block)
		}

		plan.Chapters = append(plan.Chapters, ch)
	}

	return plan
}

// TotalWordEstimate sums the per-chapter word estimates.
func (p Plan) TotalWordEstimate() int {
	total := 0
	for _, ch := range p.Chapters {
		total += ch.WordEstimate
	}
	return total
}
