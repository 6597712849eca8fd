package jobs_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devashishk/podcast-forge/internal/agents"
	"github.com/devashishk/podcast-forge/internal/audio"
	"github.com/devashishk/podcast-forge/internal/jobs"
	"github.com/devashishk/podcast-forge/internal/llm"
	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

// stageChat routes fake responses by sniffing the stage's system prompt.
type stageChat struct {
	mu              sync.Mutex
	scripterActive  int
	scripterMaxSeen int
	scripterStarted chan struct{}
	startedOnce     sync.Once
	blockScripters  bool
	failResearch    error
	chapters        int
	perChapterWords int
}

func newStageChat(chapters, perChapterWords int) *stageChat {
	return &stageChat{
		chapters:        chapters,
		perChapterWords: perChapterWords,
		scripterStarted: make(chan struct{}),
	}
}

func (s *stageChat) Chat(ctx context.Context, messages []llm.Message, _ llm.ChatOptions) (*llm.ChatResult, error) {
	system := messages[0].Content

	switch {
	case strings.Contains(system, "episode planner"):
		return reply(planMarkdown(s.chapters, s.perChapterWords))
	case strings.Contains(system, "podcast researcher"):
		if s.failResearch != nil {
			return nil, s.failResearch
		}
		return reply(researchMarkdown())
	case strings.Contains(system, "episode outliner"):
		return reply(outlineMarkdown(s.chapters, s.perChapterWords))
	case strings.Contains(system, "scriptwriter"):
		s.mu.Lock()
		s.scripterActive++
		if s.scripterActive > s.scripterMaxSeen {
			s.scripterMaxSeen = s.scripterActive
		}
		s.mu.Unlock()
		s.startedOnce.Do(func() { close(s.scripterStarted) })

		if s.blockScripters {
			<-ctx.Done()
			s.mu.Lock()
			s.scripterActive--
			s.mu.Unlock()
			return nil, ctx.Err()
		}
		time.Sleep(10 * time.Millisecond)

		s.mu.Lock()
		s.scripterActive--
		s.mu.Unlock()
		return reply(hostDialogue(s.perChapterWords))
	case strings.Contains(system, "delivery director"):
		return reply(tonedEpisode(s.chapters, s.perChapterWords))
	case strings.Contains(system, "script editor"):
		return reply(tonedEpisode(s.chapters, s.perChapterWords))
	}
	return nil, fmt.Errorf("unexpected system prompt: %.60s", system)
}

func reply(content string) (*llm.ChatResult, error) {
	return &llm.ChatResult{Content: content, FinishReason: "stop"}, nil
}

func planMarkdown(chapters, perChapter int) string {
	var sb strings.Builder
	sb.WriteString("## Overview\nAn episode.\n\n## Chapter Breakdown\n\n")
	for i := 1; i <= chapters; i++ {
		fmt.Fprintf(&sb, "### Chapter %d: Part %d\n- Duration: %d words\n- Narrative Purpose: Advance.\n- Research Focus: Facts.\n\n", i, i, perChapter)
	}
	sb.WriteString("## Research Priorities\n- sources\n\n## Style Guidelines\nTight.\n\n## Success Metrics\nDone.\n")
	return sb.String()
}

func researchMarkdown() string {
	return "## Executive Summary\nFacts.\n\n## Key Facts & Statistics\n- one\n\n## Main Themes & Perspectives\n- theme\n"
}

func outlineMarkdown(chapters, perChapter int) string {
	var sb strings.Builder
	sb.WriteString("## Episode Overview\nAn episode.\n\n## Opening Hook\n- a hook\n\n## Chapter Outlines\n\n")
	for i := 1; i <= chapters; i++ {
		fmt.Fprintf(&sb, "### Chapter %d: Part %d\n- Duration: %d words\n- a point\n- Narrative Purpose: Advance.\n\n", i, i, perChapter)
	}
	sb.WriteString("## Closing Segment\n- wrap up\n\n## Pacing Notes\nBrisk.\n")
	return sb.String()
}

func hostDialogue(words int) string {
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

func tonedEpisode(chapters, perChapter int) string {
	var sb strings.Builder
	for c := 1; c <= chapters; c++ {
		fmt.Fprintf(&sb, "## Chapter %d\n\n", c)
		words := perChapter
		host := 1
		for words > 0 {
			n := min(words, 10)
			words -= n
			fmt.Fprintf(&sb, "**Host %d:** [calm] %s.\n", host, strings.TrimSpace(strings.Repeat("ride ", n)))
			host = 3 - host
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// fakeSynth writes an empty MP3 per utterance.
type fakeSynth struct {
	mu       sync.Mutex
	chapters []int
}

func (f *fakeSynth) SynthesizeChapter(_ context.Context, scratchDir string, chapter int, utterances []script.Utterance) ([]string, error) {
	f.mu.Lock()
	f.chapters = append(f.chapters, chapter)
	f.mu.Unlock()

	var files []string
	for _, u := range utterances {
		path := filepath.Join(scratchDir, fmt.Sprintf("chapter-%d-utterance-%d.mp3", chapter, u.Index))
		if err := os.WriteFile(path, []byte("mp3"), 0644); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// fakeAssembler concatenates by appending file contents.
type fakeAssembler struct {
	mu          sync.Mutex
	finalInputs []string
	duration    float64
}

func (f *fakeAssembler) ConcatChapter(_ context.Context, scratchDir string, chapter int, utteranceFiles []string) (string, error) {
	out := filepath.Join(scratchDir, fmt.Sprintf("chapter-%d-combined.mp3", chapter))
	var data []byte
	for _, uf := range utteranceFiles {
		b, err := os.ReadFile(uf)
		if err != nil {
			return "", err
		}
		data = append(data, b...)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", err
	}
	return out, nil
}

func (f *fakeAssembler) ConcatFinal(_ context.Context, chapterFiles []string, outputPath string) error {
	f.mu.Lock()
	f.finalInputs = append([]string(nil), chapterFiles...)
	f.mu.Unlock()
	return os.WriteFile(outputPath, []byte("final"), 0644)
}

func (f *fakeAssembler) Probe(context.Context, string) (*audio.ProbeResult, error) {
	return &audio.ProbeResult{DurationSec: f.duration, Bitrate: "128000", Codec: "mp3", SampleRate: "44100"}, nil
}

type fixture struct {
	registry     *jobs.Registry
	orchestrator *jobs.Orchestrator
	chat         *stageChat
	assembler    *fakeAssembler
	synth        *fakeSynth
	tempDir      string
	outputDir    string
}

func newFixture(t *testing.T, chat *stageChat, maxScripters int) *fixture {
	t.Helper()
	registry := jobs.NewRegistry()
	rt := agents.NewRuntime(chat, nil, "test-model", 4096, 5*time.Second)
	synth := &fakeSynth{}
	assembler := &fakeAssembler{duration: 300}
	tempDir := t.TempDir()
	outputDir := t.TempDir()

	orchestrator := jobs.NewOrchestrator(jobs.OrchestratorConfig{
		Registry:               registry,
		Planner:                agents.NewPlanner(rt, ""),
		Researcher:             agents.NewResearcher(rt, nil, ""),
		Outliner:               agents.NewOutliner(rt, ""),
		Scripter:               agents.NewScripter(rt, ""),
		Tone:                   agents.NewToneAnnotator(rt, ""),
		Editor:                 agents.NewEditor(rt, ""),
		Synthesizer:            synth,
		Assembler:              assembler,
		TempDir:                tempDir,
		OutputDir:              outputDir,
		MaxConcurrentScripters: maxScripters,
		TolerancePercent:       5,
	})

	return &fixture{
		registry:     registry,
		orchestrator: orchestrator,
		chat:         chat,
		assembler:    assembler,
		synth:        synth,
		tempDir:      tempDir,
		outputDir:    outputDir,
	}
}

func briefFor(chapters, durationMin int) types.Brief {
	return types.Brief{
		Topic:       "The history of the bicycle",
		Mood:        "neutral",
		Style:       "conversational",
		Chapters:    chapters,
		DurationMin: durationMin,
	}
}

func TestPipelineHappyPath(t *testing.T) {
	chat := newStageChat(3, 250)
	fx := newFixture(t, chat, 5)

	job := fx.registry.Create(briefFor(3, 5))
	fx.orchestrator.Run(job.ID)

	got := fx.registry.Get(job.ID)
	require.Equal(t, jobs.StateCompleted, got.State, "error: %s", got.ErrMessage)
	assert.Equal(t, jobs.TotalSteps, got.StepsCompleted)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, 750, got.Metadata.WordCount)
	assert.Equal(t, 3, got.Metadata.Chapters)
	assert.Equal(t, types.AccuracyExcellent, got.Metadata.Accuracy)
	assert.InDelta(t, 150.0, got.Metadata.ActualWordsPerMinute, 0.001)
	assert.NotNil(t, got.CompletedAt)

	// Final MP3 exists; scratch directory does not.
	assert.FileExists(t, got.AudioPath)
	assert.NoDirExists(t, filepath.Join(fx.tempDir, job.ID))

	// Chapter order matches plan order regardless of completion order.
	assert.Equal(t, []int{1, 2, 3}, fx.synth.chapters)
	require.Len(t, fx.assembler.finalInputs, 3)
	for i, in := range fx.assembler.finalInputs {
		assert.Contains(t, in, fmt.Sprintf("chapter-%d-combined", i+1))
	}

	// The artifact JSON sits next to the MP3 and holds all six documents.
	data, err := os.ReadFile(filepath.Join(fx.outputDir, job.ID+"-artifacts.json"))
	require.NoError(t, err)
	var doc struct {
		ID        string `json:"id"`
		Artifacts struct {
			Plan        string   `json:"plan"`
			Research    string   `json:"research"`
			Outline     string   `json:"outline"`
			Scripts     []string `json:"scripts"`
			ToneScript  string   `json:"toneScript"`
			FinalScript string   `json:"finalScript"`
		} `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, job.ID, doc.ID)
	assert.NotEmpty(t, doc.Artifacts.Plan)
	assert.NotEmpty(t, doc.Artifacts.Research)
	assert.NotEmpty(t, doc.Artifacts.Outline)
	assert.Len(t, doc.Artifacts.Scripts, 3)
	assert.NotEmpty(t, doc.Artifacts.ToneScript)
	assert.NotEmpty(t, doc.Artifacts.FinalScript)
}

func TestPipelineSingleChapterMinimum(t *testing.T) {
	chat := newStageChat(1, 150)
	fx := newFixture(t, chat, 5)

	job := fx.registry.Create(briefFor(1, 1))
	fx.orchestrator.Run(job.ID)

	got := fx.registry.Get(job.ID)
	require.Equal(t, jobs.StateCompleted, got.State, "error: %s", got.ErrMessage)
	assert.Equal(t, 150, got.Metadata.WordCount)
	assert.Equal(t, []int{1}, fx.synth.chapters)
	assert.Len(t, fx.assembler.finalInputs, 1)
}

func TestPipelineBoundedFanOut(t *testing.T) {
	chat := newStageChat(10, 180)
	fx := newFixture(t, chat, 5)

	job := fx.registry.Create(briefFor(10, 12))
	fx.orchestrator.Run(job.ID)

	got := fx.registry.Get(job.ID)
	require.Equal(t, jobs.StateCompleted, got.State, "error: %s", got.ErrMessage)
	assert.LessOrEqual(t, chat.scripterMaxSeen, 5, "fan-out exceeded the concurrency cap")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, fx.synth.chapters)
}

func TestPipelineStageFailure(t *testing.T) {
	chat := newStageChat(3, 250)
	chat.failResearch = &llm.StatusError{Code: 401, Body: "bad key"}
	fx := newFixture(t, chat, 5)

	job := fx.registry.Create(briefFor(3, 5))
	fx.orchestrator.Run(job.ID)

	got := fx.registry.Get(job.ID)
	require.Equal(t, jobs.StateFailed, got.State)
	assert.Equal(t, types.ErrKindBackend, got.ErrKind)
	assert.NotEmpty(t, got.ErrMessage)

	assert.NoFileExists(t, filepath.Join(fx.outputDir, job.ID+".mp3"))
	assert.NoFileExists(t, filepath.Join(fx.outputDir, job.ID+"-artifacts.json"))
	assert.NoDirExists(t, filepath.Join(fx.tempDir, job.ID))
}

func TestPipelineCancellation(t *testing.T) {
	chat := newStageChat(3, 250)
	chat.blockScripters = true
	fx := newFixture(t, chat, 5)

	job := fx.registry.Create(briefFor(3, 5))

	done := make(chan struct{})
	go func() {
		fx.orchestrator.Run(job.ID)
		close(done)
	}()

	select {
	case <-chat.scripterStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("scripter never started")
	}

	state, err := fx.registry.Cancel(job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateCancelled, state)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}

	got := fx.registry.Get(job.ID)
	assert.Equal(t, jobs.StateCancelled, got.State)
	assert.NoFileExists(t, filepath.Join(fx.outputDir, job.ID+".mp3"))
	assert.NoDirExists(t, filepath.Join(fx.tempDir, job.ID))
}

func TestPipelineProgressMonotone(t *testing.T) {
	chat := newStageChat(2, 200)
	fx := newFixture(t, chat, 5)

	job := fx.registry.Create(briefFor(2, 3))
	events, unsubscribe := fx.registry.Subscribe(job.ID)
	defer unsubscribe()

	go fx.orchestrator.Run(job.ID)

	last := -1
	for ev := range events {
		require.GreaterOrEqual(t, ev.StepsCompleted, last, "progress went backwards")
		last = ev.StepsCompleted
		if ev.State.Terminal() {
			break
		}
	}
	assert.Equal(t, jobs.TotalSteps, last)
}
