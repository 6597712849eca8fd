package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `# Episode Plan

## Overview
A three-chapter ride through the history of the bicycle.

## Target Audience
Curious generalists.

## Chapter Breakdown

### Chapter 1: The Running Machine
- Duration: 250 words
- Key Points:
  - The draisine of 1817
  - Why it had no pedals
- Narrative Purpose: Set the origin scene.
- Research Focus: Karl von Drais and his patent.

### Chapter 2: Pedals and Peril
- Duration: 250 words
- Key Points:
  - The boneshaker era
  - Penny-farthing crashes
- Narrative Purpose: Build tension through danger.
- Research Focus: Injury statistics of the 1870s.

### Chapter 3: The Safety Bicycle
- Duration: 250 words
- Key Points:
  - The diamond frame
  - Mass adoption
- Narrative Purpose: Resolve into the modern machine.
- Research Focus: Social impact of cheap mobility.

## Research Priorities
- Patent records
- Period newspapers

## Style Guidelines
Conversational, concrete, vivid.

## Success Metrics
Listeners finish the episode.
`

func TestParsePlan(t *testing.T) {
	plan := ParsePlan(samplePlan)
	require.Len(t, plan.Chapters, 3)

	first := plan.Chapters[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "The Running Machine", first.Title)
	assert.Equal(t, 250, first.WordEstimate)
	assert.Equal(t, "Set the origin scene.", first.Purpose)
	assert.Equal(t, "Karl von Drais and his patent.", first.ResearchFocus)
	assert.Contains(t, first.KeyPoints, "The draisine of 1817")

	assert.Equal(t, 750, plan.TotalWordEstimate())
}

func TestParsePlanScopesToBreakdown(t *testing.T) {
	plan := ParsePlan(samplePlan)
	// Bullets from Research Priorities must not leak into the last chapter.
	last := plan.Chapters[len(plan.Chapters)-1]
	assert.NotContains(t, last.KeyPoints, "Patent records")
}

func TestParsePlanEmpty(t *testing.T) {
	plan := ParsePlan("## Overview\nNothing else here.")
	assert.Empty(t, plan.Chapters)
}

func TestHasSection(t *testing.T) {
	assert.True(t, HasSection(samplePlan, "Chapter Breakdown"))
	assert.True(t, HasSection(samplePlan, "overview"))
	assert.False(t, HasSection(samplePlan, "Closing Segment"))
}

func TestMissingSections(t *testing.T) {
	missing := MissingSections(samplePlan, []string{"Overview", "Chapter Breakdown", "Nonexistent"})
	assert.Equal(t, []string{"Nonexistent"}, missing)
}

func TestSectionBody(t *testing.T) {
	body := SectionBody(samplePlan, "Research Priorities")
	assert.Contains(t, body, "Patent records")
	assert.NotContains(t, body, "Conversational")

	assert.Empty(t, SectionBody(samplePlan, "No Such Section"))
}

func TestLabeledValue(t *testing.T) {
	block := "- **Narrative Purpose:** Set the scene.\n- Duration: 120 words"
	assert.Equal(t, "Set the scene.", LabeledValue(block, "Narrative Purpose"))
	assert.Equal(t, "120 words", LabeledValue(block, "Duration"))
	assert.Empty(t, LabeledValue(block, "Missing Label"))
}

const sampleOutline = `# Episode Outline

## Episode Overview
A ride through bicycle history.

## Opening Hook
- A rider crests a hill in 1890
- Narrative Purpose: Pull the listener in.

## Chapter Outlines

### Chapter 1: The Running Machine
- Duration: 240 words
- The draisine and its inventor
- Narrative Purpose: Origins.

### Chapter 2: Pedals and Peril
- Duration: 260 words
- Boneshakers and penny-farthings
- Narrative Purpose: Danger era.

### Chapter 3: The Safety Bicycle
- Duration: 250 words
- The diamond frame wins
- Narrative Purpose: Resolution.

## Closing Segment
- Echo the opening scene
- Invite listeners back

## Pacing Notes
Keep chapter two brisk.
`

func TestParseOutline(t *testing.T) {
	outline := ParseOutline(sampleOutline)

	chapters := outline.ChapterSections()
	require.Len(t, chapters, 3)
	assert.Equal(t, "Pedals and Peril", chapters[1].Title)
	assert.Equal(t, 260, chapters[1].WordEstimate)

	require.GreaterOrEqual(t, len(outline.Sections), 5)
	assert.Equal(t, SectionOpening, outline.Sections[0].Kind)
	assert.Equal(t, SectionClosing, outline.Sections[len(outline.Sections)-1].Kind)

	// Closing bullets must not be swallowed by chapter three.
	assert.NotContains(t, chapters[2].Points, "Echo the opening scene")

	assert.Equal(t, 750, outline.TotalWordEstimate())
}

func TestChapterMarkdown(t *testing.T) {
	s := Section{Kind: SectionChapter, Number: 2, Title: "Pedals", Purpose: "Danger era.", Points: []string{"a", "b"}}
	md := s.ChapterMarkdown()
	assert.Contains(t, md, "### Chapter 2: Pedals")
	assert.Contains(t, md, "- Narrative Purpose: Danger era.")
	assert.Contains(t, md, "- a")
}
