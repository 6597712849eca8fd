package script

import (
	"regexp"
	"strings"
)

var chapterSplitRe = regexp.MustCompile(`(?m)^##\s*Chapter\s+\d+.*$`)

// CountChapterHeadings reports how many "## Chapter N" headings the script
// carries. Audio assembly segments chapters on these headings.
func CountChapterHeadings(markdown string) int {
	return len(chapterSplitRe.FindAllStringIndex(markdown, -1))
}

// SplitChapters cuts a joined script back into per-chapter chunks on its
// "## Chapter N" headings. A script without chapter headings is a single
// chapter.
func SplitChapters(markdown string) []string {
	locs := chapterSplitRe.FindAllStringIndex(markdown, -1)
	if len(locs) == 0 {
		return []string{markdown}
	}

	var chunks []string
	for i, loc := range locs {
		end := len(markdown)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunk := strings.TrimSpace(markdown[loc[1]:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	if len(chunks) == 0 {
		return []string{markdown}
	}
	return chunks
}
