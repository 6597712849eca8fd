package agents_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devashishk/podcast-forge/internal/agents"
	"github.com/devashishk/podcast-forge/internal/fetcher"
	"github.com/devashishk/podcast-forge/internal/llm"
	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

// fakeChat scripts the chat backend: respond receives the system prompt, the
// user prompt and the 1-based call number.
type fakeChat struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	respond func(system, user string, call int) (string, error)
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.Message, _ llm.ChatOptions) (*llm.ChatResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, messages[1].Content)
	f.mu.Unlock()

	content, err := f.respond(messages[0].Content, messages[1].Content, call)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResult{Content: content, FinishReason: "stop"}, nil
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newRuntime(chat llm.ChatBackend) *agents.Runtime {
	return agents.NewRuntime(chat, nil, "test-model", 4096, 30*time.Second)
}

// dialogue produces a two-host script with exactly the requested number of
// spoken words.
func dialogue(words int) string {
	var sb strings.Builder
	host := 1
	for words > 0 {
		n := min(words, 10)
		words -= n
		fmt.Fprintf(&sb, "**Host %d:** %s.\n", host, strings.TrimSpace(strings.Repeat("ride ", n)))
		host = 3 - host
	}
	return sb.String()
}

func tonedDialogue(words int) string {
	var sb strings.Builder
	host := 1
	for words > 0 {
		n := min(words, 10)
		words -= n
		fmt.Fprintf(&sb, "**Host %d:** [calm] %s.\n", host, strings.TrimSpace(strings.Repeat("ride ", n)))
		host = 3 - host
	}
	return sb.String()
}

func testSection(n int) script.Section {
	return script.Section{
		Kind:   script.SectionChapter,
		Number: n,
		Title:  fmt.Sprintf("Chapter title %d", n),
		Points: []string{"a talking point"},
	}
}

func TestScripterAcceptsWithinTolerance(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return dialogue(200), nil
	}}
	scripter := agents.NewScripter(newRuntime(chat), "")

	cs, err := scripter.Execute(context.Background(), testSection(1), "outline", "conversational", 200)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Attempts)
	assert.Equal(t, 200, cs.WordCount)
	assert.Zero(t, cs.Deviation)
	assert.Equal(t, 1, chat.callCount())
}

func TestScripterExpandRetry(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, call int) (string, error) {
		if call == 1 {
			return dialogue(120), nil // 60% of target
		}
		return dialogue(200), nil
	}}
	scripter := agents.NewScripter(newRuntime(chat), "")

	cs, err := scripter.Execute(context.Background(), testSection(1), "outline", "conversational", 200)
	require.NoError(t, err)
	assert.Equal(t, 2, cs.Attempts)
	assert.Equal(t, 200, cs.WordCount)

	// The corrective directive states the counts and the direction.
	second := chat.prompts[1]
	assert.Contains(t, second, "120")
	assert.Contains(t, second, "200")
	assert.Contains(t, second, "expand")
}

func TestScripterRecordsDeviationAfterAllAttempts(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return dialogue(100), nil // persistently half the target
	}}
	scripter := agents.NewScripter(newRuntime(chat), "")

	cs, err := scripter.Execute(context.Background(), testSection(2), "outline", "educational", 200)
	require.NoError(t, err)
	assert.Equal(t, 3, cs.Attempts)
	assert.InDelta(t, -50.0, cs.Deviation, 0.001)
	assert.Equal(t, 3, chat.callCount())
}

func TestScripterStyleGuidance(t *testing.T) {
	var sawSystem string
	chat := &fakeChat{respond: func(system, _ string, _ int) (string, error) {
		sawSystem = system
		return dialogue(200), nil
	}}
	scripter := agents.NewScripter(newRuntime(chat), "")

	_, err := scripter.Execute(context.Background(), testSection(1), "outline", "interview", 200)
	require.NoError(t, err)
	assert.Contains(t, sawSystem, "interview")

	// narrative falls through to storytelling guidance
	_, err = scripter.Execute(context.Background(), testSection(1), "outline", "narrative", 200)
	require.NoError(t, err)
	assert.Contains(t, sawSystem, "storytelling")
}

const fakePlan = `## Overview
An episode.

## Chapter Breakdown

### Chapter 1: One
- Duration: 375 words
- Narrative Purpose: Open.
- Research Focus: Origins.

### Chapter 2: Two
- Duration: 375 words
- Narrative Purpose: Close.
- Research Focus: Legacy.

## Research Priorities
- sources

## Style Guidelines
Keep it tight.

## Success Metrics
Completion.
`

func TestPlannerParsesPlan(t *testing.T) {
	chat := &fakeChat{respond: func(_, user string, _ int) (string, error) {
		assert.Contains(t, user, "750")
		return fakePlan, nil
	}}
	planner := agents.NewPlanner(newRuntime(chat), "")

	brief := types.Brief{Topic: "bikes", Mood: "neutral", Style: "conversational", Chapters: 2, DurationMin: 5}
	planMD, plan, err := planner.Execute(context.Background(), brief, types.NewWordBudget(5, 2))
	require.NoError(t, err)
	assert.Contains(t, planMD, "Chapter Breakdown")
	assert.Len(t, plan.Chapters, 2)
}

func TestPlannerRejectsStructurelessPlan(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return "just some text with no sections at all", nil
	}}
	planner := agents.NewPlanner(newRuntime(chat), "")

	brief := types.Brief{Topic: "bikes", Mood: "neutral", Style: "conversational", Chapters: 2, DurationMin: 5}
	_, _, err := planner.Execute(context.Background(), brief, types.NewWordBudget(5, 2))

	var se *agents.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "planner", se.Stage)
	assert.Equal(t, types.ErrKindAgent, se.Kind)
}

type fakeFetcher struct {
	content *fetcher.Content
	err     error
}

func (f *fakeFetcher) Fetch(context.Context, string) (*fetcher.Content, error) {
	return f.content, f.err
}

func TestResearcherUsesSourceWithoutModelCall(t *testing.T) {
	body := strings.Repeat("bicycle history fact sentence here ", 40) // well over 50 words
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		t.Fatal("model must not be called when a usable source is supplied")
		return "", nil
	}}
	f := &fakeFetcher{content: &fetcher.Content{
		Title:     "Two Centuries on Two Wheels",
		Content:   body,
		WordCount: len(strings.Fields(body)),
		Source:    "notes.md",
	}}
	researcher := agents.NewResearcher(newRuntime(chat), f, "")

	brief := types.Brief{Topic: "bikes", Source: "notes.md"}
	notes, err := researcher.Execute(context.Background(), brief, script.Plan{})
	require.NoError(t, err)

	assert.Zero(t, chat.callCount())
	assert.Contains(t, notes, "Two Centuries on Two Wheels")
	assert.Contains(t, notes, body)
	assert.Contains(t, notes, "## Executive Summary")
}

func TestResearcherFallsBackOnFetchFailure(t *testing.T) {
	research := "## Executive Summary\nfacts\n\n## Key Facts & Statistics\n- one\n\n## Main Themes & Perspectives\n- theme"
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return research, nil
	}}
	f := &fakeFetcher{err: errors.New("unreachable")}
	researcher := agents.NewResearcher(newRuntime(chat), f, "")

	brief := types.Brief{Topic: "bikes", Source: "https://example.com/dead"}
	notes, err := researcher.Execute(context.Background(), brief, script.Plan{})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.callCount())
	assert.Contains(t, notes, "Key Facts")
}

func TestEditorRejectsPlaceholders(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return tonedDialogue(100) + "\n[INSERT closing thought]", nil
	}}
	editor := agents.NewEditor(newRuntime(chat), "")

	_, err := editor.Execute(context.Background(), tonedDialogue(100), 100, 5, "conversational", "neutral")
	var se *agents.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrKindAgent, se.Kind)
}

func TestEditorConvergesOnTarget(t *testing.T) {
	chat := &fakeChat{respond: func(system, user string, call int) (string, error) {
		assert.Contains(t, system, `"## Chapter N"`)
		if call == 1 {
			return tonedDialogue(160), nil
		}
		assert.Contains(t, user, "expand")
		return tonedDialogue(200), nil
	}}
	editor := agents.NewEditor(newRuntime(chat), "")

	final, err := editor.Execute(context.Background(), tonedDialogue(150), 200, 5, "conversational", "neutral")
	require.NoError(t, err)
	assert.Equal(t, 200, script.CountSpokenWords(final))
	assert.Equal(t, 2, chat.callCount())
}

func TestToneAnnotator(t *testing.T) {
	annotated := `## Chapter 1
**Host 1:** [upbeat] Welcome to the ride.
**Host 2:** [curious] Where do we start?
`
	chat := &fakeChat{respond: func(system, user string, _ int) (string, error) {
		assert.Contains(t, system, "upbeat")
		assert.Contains(t, user, "## Chapter 1")
		return annotated, nil
	}}
	annotator := agents.NewToneAnnotator(newRuntime(chat), "")

	toneMD, utts, err := annotator.Execute(context.Background(),
		[]string{dialogue(40)}, "neutral", "conversational")
	require.NoError(t, err)
	assert.Equal(t, annotated, toneMD+"\n")
	require.Len(t, utts, 2)
	assert.Equal(t, "upbeat", utts[0].Tone)
}

func TestToneAnnotatorRejectsUnparseable(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return "no dialogue lines at all", nil
	}}
	annotator := agents.NewToneAnnotator(newRuntime(chat), "")

	_, _, err := annotator.Execute(context.Background(), []string{dialogue(40)}, "neutral", "conversational")
	var se *agents.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "tone", se.Stage)
}

func TestJoinChapterScriptsStripsSpeakingNotes(t *testing.T) {
	chapter := dialogue(20) + "\n## Speaking Notes\n- brisk pace\n"
	joined := agents.JoinChapterScripts([]string{chapter, dialogue(20)})

	assert.Contains(t, joined, "## Chapter 1")
	assert.Contains(t, joined, "## Chapter 2")
	assert.NotContains(t, joined, "Speaking Notes")
	assert.NotContains(t, joined, "brisk pace")
}

func TestRuntimeRetriesTransientFailure(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, call int) (string, error) {
		if call == 1 {
			return "", errors.New("connection reset")
		}
		return dialogue(200), nil
	}}
	scripter := agents.NewScripter(newRuntime(chat), "")

	cs, err := scripter.Execute(context.Background(), testSection(1), "outline", "conversational", 200)
	require.NoError(t, err)
	assert.Equal(t, 200, cs.WordCount)
	assert.Equal(t, 2, chat.callCount())
}

func TestRuntimeStopsOnNonRetryable(t *testing.T) {
	chat := &fakeChat{respond: func(_, _ string, _ int) (string, error) {
		return "", &llm.StatusError{Code: 401, Body: "bad key"}
	}}
	scripter := agents.NewScripter(newRuntime(chat), "")

	_, err := scripter.Execute(context.Background(), testSection(1), "outline", "conversational", 200)
	var se *agents.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.ErrKindBackend, se.Kind)
	assert.Equal(t, 1, chat.callCount())
}
