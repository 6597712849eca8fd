package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/devashishk/podcast-forge/internal/agents"
	"github.com/devashishk/podcast-forge/internal/audio"
	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/storage"
	"github.com/devashishk/podcast-forge/internal/types"
)

// ChapterSynthesizer renders one chapter's utterances to MP3 files.
type ChapterSynthesizer interface {
	SynthesizeChapter(ctx context.Context, scratchDir string, chapter int, utterances []script.Utterance) ([]string, error)
}

// AudioAssembler stitches utterance files into chapters and the final episode.
type AudioAssembler interface {
	ConcatChapter(ctx context.Context, scratchDir string, chapter int, utteranceFiles []string) (string, error)
	ConcatFinal(ctx context.Context, chapterFiles []string, outputPath string) error
	Probe(ctx context.Context, path string) (*audio.ProbeResult, error)
}

// Orchestrator drives the seven-stage pipeline. Each Run call handles one
// job; the worker pool may run several jobs through it concurrently.
type Orchestrator struct {
	registry   *Registry
	planner    *agents.Planner
	researcher *agents.Researcher
	outliner   *agents.Outliner
	scripter   *agents.Scripter
	tone       *agents.ToneAnnotator
	editor     *agents.Editor
	synth      ChapterSynthesizer
	assembler  AudioAssembler

	episodes *storage.EpisodeDB   // optional
	drive    *storage.DriveClient // optional

	tempDir                string
	outputDir              string
	maxConcurrentScripters int
	tolerancePercent       float64
}

// OrchestratorConfig wires an orchestrator.
type OrchestratorConfig struct {
	Registry               *Registry
	Planner                *agents.Planner
	Researcher             *agents.Researcher
	Outliner               *agents.Outliner
	Scripter               *agents.Scripter
	Tone                   *agents.ToneAnnotator
	Editor                 *agents.Editor
	Synthesizer            ChapterSynthesizer
	Assembler              AudioAssembler
	Episodes               *storage.EpisodeDB
	Drive                  *storage.DriveClient
	TempDir                string
	OutputDir              string
	MaxConcurrentScripters int
	TolerancePercent       float64
}

// NewOrchestrator creates the pipeline driver.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxConcurrentScripters <= 0 {
		cfg.MaxConcurrentScripters = 5
	}
	if cfg.TolerancePercent <= 0 {
		cfg.TolerancePercent = 5
	}
	return &Orchestrator{
		registry:               cfg.Registry,
		planner:                cfg.Planner,
		researcher:             cfg.Researcher,
		outliner:               cfg.Outliner,
		scripter:               cfg.Scripter,
		tone:                   cfg.Tone,
		editor:                 cfg.Editor,
		synth:                  cfg.Synthesizer,
		assembler:              cfg.Assembler,
		episodes:               cfg.Episodes,
		drive:                  cfg.Drive,
		tempDir:                cfg.TempDir,
		outputDir:              cfg.OutputDir,
		maxConcurrentScripters: cfg.MaxConcurrentScripters,
		tolerancePercent:       cfg.TolerancePercent,
	}
}

// Run executes the pipeline for a queued job. It owns the job's scratch
// directory and guarantees its removal on every exit path.
func (o *Orchestrator) Run(jobID string) {
	job := o.registry.Get(jobID)
	if job == nil || job.State != StateQueued {
		return
	}
	brief := job.Brief
	started := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.registry.BindCancel(jobID, cancel)
	defer o.registry.ReleaseCancel(jobID)

	scratchDir := filepath.Join(o.tempDir, jobID)
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		o.fail(jobID, types.ErrKindInternal, fmt.Errorf("failed to create scratch directory: %v", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			log.Printf("Job %s: failed to remove scratch directory: %v", jobID, err)
		}
	}()

	if err := o.registry.Update(jobID, func(j *Job) error {
		j.State = StateProcessing
		now := time.Now()
		j.StartedAt = &now
		j.CurrentStep = StepNames[0]
		return nil
	}); err != nil {
		return
	}

	budget := types.NewWordBudget(brief.DurationMin, brief.Chapters)
	log.Printf("Job %s: starting pipeline (%d words, %d chapters)", jobID, budget.TotalWords, brief.Chapters)

	// Stage 1: plan
	planMD, plan, err := o.planner.Execute(ctx, brief, budget)
	if o.stageDone(ctx, jobID, 1, err) {
		return
	}

	// Stage 2: research
	researchMD, err := o.researcher.Execute(ctx, brief, plan)
	if o.stageDone(ctx, jobID, 2, err) {
		return
	}

	// Stage 3: outline
	outlineMD, outline, err := o.outliner.Execute(ctx, planMD, researchMD, brief.Chapters, budget.TotalWords, brief.Style)
	if o.stageDone(ctx, jobID, 3, err) {
		return
	}

	// Stage 4: chapter scripts, bounded fan-out
	chapterScripts, err := o.runScripters(ctx, outline, outlineMD, brief, budget)
	if o.stageDone(ctx, jobID, 4, err) {
		return
	}
	scriptMDs := make([]string, len(chapterScripts))
	for i, cs := range chapterScripts {
		scriptMDs[i] = cs.Markdown
	}

	// Stage 5: tone annotation
	toneMD, _, err := o.tone.Execute(ctx, scriptMDs, brief.Mood, brief.Style)
	if o.stageDone(ctx, jobID, 5, err) {
		return
	}

	// Stage 6: editorial convergence
	finalMD, err := o.editor.Execute(ctx, toneMD, budget.TotalWords, o.tolerancePercent, brief.Style, brief.Mood)
	if o.stageDone(ctx, jobID, 6, err) {
		return
	}

	// Stage 7: synthesis and assembly
	audioPath := filepath.Join(o.outputDir, jobID+".mp3")
	probe, finalWords, err := o.produceAudio(ctx, jobID, scratchDir, finalMD, audioPath)
	if o.stageDone(ctx, jobID, 7, err) {
		return
	}

	artifacts := &types.Artifacts{
		Plan:        planMD,
		Research:    researchMD,
		Outline:     outlineMD,
		Scripts:     scriptMDs,
		ToneScript:  toneMD,
		FinalScript: finalMD,
	}

	artifactsPath, err := storage.SaveArtifacts(o.outputDir, jobID, artifacts)
	if err != nil {
		o.failWithCleanup(jobID, types.ErrKindInternal, err, audioPath)
		return
	}

	metadata := &types.EpisodeMetadata{
		DurationSec:          probe.DurationSec,
		WordCount:            finalWords,
		Chapters:             brief.Chapters,
		ActualWordsPerMinute: float64(finalWords) * 60 / probe.DurationSec,
		Accuracy:             types.ClassifyAccuracy(budget.TotalWords, finalWords),
		GenerationTimeMs:     time.Since(started).Milliseconds(),
		Bitrate:              probe.Bitrate,
		Codec:                probe.Codec,
		SampleRate:           probe.SampleRate,
	}

	o.publish(jobID, brief, metadata, audioPath, artifactsPath)

	err = o.registry.Update(jobID, func(j *Job) error {
		j.State = StateCompleted
		j.CurrentStep = ""
		j.StepsCompleted = TotalSteps
		j.Artifacts = artifacts
		j.Metadata = metadata
		j.AudioPath = audioPath
		now := time.Now()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		// Cancelled at the very end: the outputs are discarded.
		o.removeOutputs(jobID, audioPath)
		return
	}

	log.Printf("Job %s: completed in %s (%.1fs audio, %d words, accuracy %s)",
		jobID, time.Since(started).Round(time.Second), probe.DurationSec, finalWords, metadata.Accuracy)
}

// stageDone advances progress after a stage. It returns true when the
// pipeline must stop, either because the stage failed or the job was
// cancelled at this boundary.
func (o *Orchestrator) stageDone(ctx context.Context, jobID string, completed int, stageErr error) bool {
	if stageErr != nil {
		if ctx.Err() != nil {
			o.observeCancelled(jobID)
			return true
		}
		kind, msg := classifyStageError(stageErr)
		o.failWithCleanup(jobID, kind, fmt.Errorf("%s", msg), filepath.Join(o.outputDir, jobID+".mp3"))
		return true
	}
	if ctx.Err() != nil {
		o.observeCancelled(jobID)
		return true
	}

	next := ""
	if completed < TotalSteps {
		next = StepNames[completed]
	}
	err := o.registry.Update(jobID, func(j *Job) error {
		j.StepsCompleted = completed
		j.CurrentStep = next
		return nil
	})
	if err != nil {
		// Terminal already (user cancel raced the stage); stop issuing calls.
		o.observeCancelled(jobID)
		return true
	}
	return false
}

// runScripters fans out chapter script generation in batches of at most
// maxConcurrentScripters. Results are bound to their chapter index, so the
// returned order matches the outline regardless of completion order.
func (o *Orchestrator) runScripters(ctx context.Context, outline script.Outline, outlineMD string, brief types.Brief, budget types.WordBudget) ([]*agents.ChapterScript, error) {
	sections := outline.ChapterSections()
	results := make([]*agents.ChapterScript, len(sections))

	for start := 0; start < len(sections); start += o.maxConcurrentScripters {
		end := min(start+o.maxConcurrentScripters, len(sections))

		var wg sync.WaitGroup
		errCh := make(chan error, end-start)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				cs, err := o.scripter.Execute(ctx, sections[i], outlineMD, brief.Style, budget.PerChapter)
				if err != nil {
					errCh <- err
					return
				}
				results[i] = cs
			}(i)
		}
		wg.Wait()
		close(errCh)
		if err := <-errCh; err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return results, nil
}

// produceAudio synthesizes every utterance, assembles chapter files and the
// final episode, and probes the result.
func (o *Orchestrator) produceAudio(ctx context.Context, jobID, scratchDir, finalScript, audioPath string) (*audio.ProbeResult, int, error) {
	chunks := script.SplitChapters(finalScript)
	finalWords := 0

	chapterFiles := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		chapter := i + 1
		utterances := script.ParseToneScript(chunk)
		if len(utterances) == 0 {
			return nil, 0, agents.NewStageError("audio", types.ErrKindAgent,
				fmt.Errorf("chapter %d of the final script has no parsable dialogue", chapter))
		}
		finalWords += script.TotalSpokenWords(utterances)

		utteranceFiles, err := o.synth.SynthesizeChapter(ctx, scratchDir, chapter, utterances)
		if err != nil {
			return nil, 0, agents.NewStageError("audio", types.ErrKindBackend, err)
		}

		chapterFile, err := o.assembler.ConcatChapter(ctx, scratchDir, chapter, utteranceFiles)
		if err != nil {
			return nil, 0, agents.NewStageError("audio", types.ErrKindAudio, err)
		}
		chapterFiles = append(chapterFiles, chapterFile)
	}

	if err := o.assembler.ConcatFinal(ctx, chapterFiles, audioPath); err != nil {
		return nil, 0, agents.NewStageError("audio", types.ErrKindAudio, err)
	}

	probe, err := o.assembler.Probe(ctx, audioPath)
	if err != nil {
		return nil, 0, agents.NewStageError("audio", types.ErrKindAudio, err)
	}
	return probe, finalWords, nil
}

// publish records the finished episode in the index and optionally uploads
// it to Google Drive. Both are best-effort and never fail the job.
func (o *Orchestrator) publish(jobID string, brief types.Brief, metadata *types.EpisodeMetadata, audioPath, artifactsPath string) {
	if o.episodes != nil {
		if err := o.episodes.SaveEpisode(jobID, brief, metadata, audioPath, artifactsPath); err != nil {
			log.Printf("Job %s: episode index save failed: %v", jobID, err)
		}
	}

	if o.drive != nil {
		var driveURL string
		var err error
		for attempt := 1; attempt <= 3; attempt++ {
			driveURL, err = o.drive.UploadEpisode(jobID, brief.Topic, audioPath, artifactsPath)
			if err == nil {
				metadata.DriveURL = driveURL
				break
			}
			log.Printf("Job %s: Google Drive upload attempt %d/3 failed: %v", jobID, attempt, err)
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second)
			}
		}
		if err != nil {
			log.Printf("Job %s: WARNING - Google Drive upload failed after 3 attempts, episode kept locally", jobID)
		}
	}
}

// observeCancelled logs the stop; the registry already holds the terminal
// state and the deferred cleanup removes the scratch directory.
func (o *Orchestrator) observeCancelled(jobID string) {
	o.removeOutputs(jobID, filepath.Join(o.outputDir, jobID+".mp3"))
	log.Printf("Job %s: cancelled, pipeline stopped at stage boundary", jobID)
}

// fail marks the job failed with a stable error kind.
func (o *Orchestrator) fail(jobID, kind string, err error) {
	log.Printf("Job %s: failed (%s): %v", jobID, kind, err)
	updateErr := o.registry.Update(jobID, func(j *Job) error {
		j.State = StateFailed
		j.ErrKind = kind
		j.ErrMessage = err.Error()
		j.CurrentStep = ""
		now := time.Now()
		j.CompletedAt = &now
		return nil
	})
	if updateErr != nil && !errors.Is(updateErr, ErrTerminal) {
		log.Printf("Job %s: failed to record failure: %v", jobID, updateErr)
	}
}

// failWithCleanup removes partial outputs before surfacing the failure.
func (o *Orchestrator) failWithCleanup(jobID, kind string, err error, audioPath string) {
	o.removeOutputs(jobID, audioPath)
	o.fail(jobID, kind, err)
}

// removeOutputs deletes the partial final MP3 and artifact JSON for a job.
func (o *Orchestrator) removeOutputs(jobID, audioPath string) {
	for _, path := range []string{audioPath, storage.ArtifactsPath(o.outputDir, jobID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Job %s: failed to remove partial output %s: %v", jobID, path, err)
		}
	}
}

// classifyStageError maps a pipeline error to its stable kind and message.
func classifyStageError(err error) (string, string) {
	var se *agents.StageError
	if errors.As(err, &se) {
		return se.Kind, se.Error()
	}
	if errors.Is(err, context.Canceled) {
		return types.ErrKindCancelled, "cancelled by user"
	}
	return types.ErrKindInternal, err.Error()
}
