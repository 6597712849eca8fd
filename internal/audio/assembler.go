package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Assembler concatenates utterance MP3s into chapter files and chapter files
// into the final episode using ffmpeg, and probes the result with ffprobe.
type Assembler struct {
	jinglePath string
}

// NewAssembler creates an assembler. jinglePath may point at a missing file,
// in which case no jingle is prefixed.
func NewAssembler(jinglePath string) *Assembler {
	return &Assembler{jinglePath: jinglePath}
}

// ConcatChapter joins a chapter's utterance files, in order, into a single
// chapter MP3 in the scratch directory.
func (a *Assembler) ConcatChapter(ctx context.Context, scratchDir string, chapter int, utteranceFiles []string) (string, error) {
	if len(utteranceFiles) == 0 {
		return "", fmt.Errorf("chapter %d has no utterance files", chapter)
	}

	outputPath := filepath.Join(scratchDir,
		fmt.Sprintf("chapter-%d-combined-%d.mp3", chapter, time.Now().UnixNano()))
	if err := a.concat(ctx, utteranceFiles, outputPath); err != nil {
		return "", fmt.Errorf("chapter %d concat failed: %w", chapter, err)
	}
	return outputPath, nil
}

// ConcatFinal joins the chapter files, in plan order, into the final episode
// file. The jingle, when present on disk, is always first.
func (a *Assembler) ConcatFinal(ctx context.Context, chapterFiles []string, outputPath string) error {
	inputs := chapterFiles
	if a.jinglePath != "" {
		if _, err := os.Stat(a.jinglePath); err == nil {
			inputs = append([]string{a.jinglePath}, chapterFiles...)
			log.Printf("Prefixing jingle: %s", a.jinglePath)
		}
	}
	return a.concat(ctx, inputs, outputPath)
}

// concat runs ffmpeg with a concat filter over the inputs.
func (a *Assembler) concat(ctx context.Context, inputs []string, outputPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", ConcatArgs(inputs, outputPath)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}
	return nil
}

// ConcatArgs builds the ffmpeg argument list for joining inputs into output
// with the concat filter and libmp3lame encoding.
func ConcatArgs(inputs []string, outputPath string) []string {
	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var filter strings.Builder
	for i := range inputs {
		fmt.Fprintf(&filter, "[%d:a]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[out]", len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outputPath,
	)
	return args
}

// ProbeResult is the media information of the final file.
type ProbeResult struct {
	DurationSec float64
	Bitrate     string
	Codec       string
	SampleRate  string
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// Probe extracts duration, bitrate, codec and sample rate via ffprobe.
func (a *Assembler) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %v", err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %v", err)
	}

	result := &ProbeResult{Bitrate: probe.Format.BitRate}
	fmt.Sscanf(probe.Format.Duration, "%f", &result.DurationSec)
	for _, s := range probe.Streams {
		if s.CodecType == "audio" {
			result.Codec = s.CodecName
			result.SampleRate = s.SampleRate
			break
		}
	}
	if result.DurationSec == 0 {
		return nil, fmt.Errorf("ffprobe reported zero duration for %s", path)
	}
	return result, nil
}
