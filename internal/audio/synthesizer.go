// Package audio turns utterances into speech and stitches the results into
// chapter files and the final episode.
package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/devashishk/podcast-forge/internal/llm"
	"github.com/devashishk/podcast-forge/internal/script"
	"github.com/devashishk/podcast-forge/internal/types"
)

// SpeechBackend synthesizes one utterance.
type SpeechBackend interface {
	Speak(ctx context.Context, req llm.SpeakRequest) ([]byte, error)
}

// Synthesizer produces one MP3 per utterance with the voice keyed on the
// speaker.
type Synthesizer struct {
	tts    SpeechBackend
	model  string
	voices map[string]string
	speed  float64
	format string
}

// NewSynthesizer creates a synthesizer. voices maps speaker ids to TTS voices.
func NewSynthesizer(tts SpeechBackend, model string, host1Voice, host2Voice string, speed float64, format string) *Synthesizer {
	return &Synthesizer{
		tts:   tts,
		model: model,
		voices: map[string]string{
			types.SpeakerHost1: host1Voice,
			types.SpeakerHost2: host2Voice,
		},
		speed:  speed,
		format: format,
	}
}

// VoiceFor returns the voice for a speaker, defaulting to host1's voice.
func (s *Synthesizer) VoiceFor(speaker string) string {
	if v, ok := s.voices[speaker]; ok {
		return v
	}
	return s.voices[types.SpeakerHost1]
}

// SynthesizeChapter renders every utterance of one chapter to an MP3 file in
// the scratch directory, in parse order. A per-utterance failure is fatal:
// a gap in the dialogue cannot be skipped silently.
func (s *Synthesizer) SynthesizeChapter(ctx context.Context, scratchDir string, chapter int, utterances []script.Utterance) ([]string, error) {
	files := make([]string, 0, len(utterances))

	for _, u := range utterances {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		audio, err := s.tts.Speak(ctx, llm.SpeakRequest{
			Model:  s.model,
			Voice:  s.VoiceFor(u.Speaker),
			Input:  u.Text,
			Speed:  s.speed,
			Format: s.format,
		})
		if err != nil {
			return nil, fmt.Errorf("tts failed for chapter %d utterance %d: %w", chapter, u.Index, err)
		}

		path := filepath.Join(scratchDir,
			fmt.Sprintf("chapter-%d-utterance-%d-%d.mp3", chapter, u.Index, time.Now().UnixNano()))
		if err := writeFileAtomic(path, audio); err != nil {
			return nil, fmt.Errorf("failed to write utterance audio: %v", err)
		}
		files = append(files, path)
	}

	log.Printf("Synthesized %d utterances for chapter %d", len(files), chapter)
	return files, nil
}

// writeFileAtomic writes bytes to a temp file and renames it into place so a
// crashed write never leaves a truncated MP3 behind.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
