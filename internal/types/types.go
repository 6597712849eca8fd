package types

// Error kind constants surfaced to API callers
const (
	ErrKindValidation = "validation"
	ErrKindAgent      = "agent"
	ErrKindBackend    = "backend"
	ErrKindAudio      = "audio"
	ErrKindCancelled  = "cancelled"
	ErrKindInternal   = "internal"
)

// Speaker identifiers for the two hosts
const (
	SpeakerHost1 = "host1"
	SpeakerHost2 = "host2"
)

// WordsPerMinute is the natural speech rate of the TTS voices.
// The whole word-budget machinery is anchored on it.
const WordsPerMinute = 150

// AllowedMoods are the accepted brief moods.
var AllowedMoods = []string{"neutral", "excited", "calm", "reflective", "enthusiastic"}

// AllowedStyles are the accepted brief styles.
var AllowedStyles = []string{"storytelling", "conversational", "interview", "educational", "narrative"}

// AllowedTones is the closed tone set the annotator instructs the model to use.
var AllowedTones = []string{
	"upbeat", "calm", "excited", "reflective", "suspenseful",
	"skeptical", "humorous", "serious", "curious", "confident",
}

// LegacyTones are historical synonyms the parser still accepts. They are
// preserved on the utterance as-is, never normalized into AllowedTones.
var LegacyTones = []string{"sad", "hopeful", "empathetic", "angry"}

// Brief is the user's input for one episode. Immutable once a job is accepted.
type Brief struct {
	Topic       string `json:"topic"`
	Focus       string `json:"focus,omitempty"`
	Mood        string `json:"mood"`
	Style       string `json:"style"`
	Chapters    int    `json:"chapters"`
	DurationMin int    `json:"duration_min"`
	Source      string `json:"source,omitempty"`
}

// WordBudget is derived once from the brief and drives every stage.
type WordBudget struct {
	TotalWords int `json:"total_words"`
	PerChapter int `json:"per_chapter"`
}

// NewWordBudget computes the episode word budget at 150 words per minute.
func NewWordBudget(durationMin, chapters int) WordBudget {
	total := durationMin * WordsPerMinute
	per := total
	if chapters > 0 {
		per = (total + chapters/2) / chapters
	}
	return WordBudget{TotalWords: total, PerChapter: per}
}

// IsAllowedMood reports whether mood is in the accepted set.
func IsAllowedMood(mood string) bool { return contains(AllowedMoods, mood) }

// IsAllowedStyle reports whether style is in the accepted set.
func IsAllowedStyle(style string) bool { return contains(AllowedStyles, style) }

// IsClosedTone reports whether tone is in the documented closed set.
func IsClosedTone(tone string) bool { return contains(AllowedTones, tone) }

// IsKnownTone reports whether tone is in the closed set or a legacy synonym.
func IsKnownTone(tone string) bool {
	return contains(AllowedTones, tone) || contains(LegacyTones, tone)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Accuracy buckets for word-count conformance
const (
	AccuracyExcellent = "excellent"
	AccuracyGood      = "good"
	AccuracyFair      = "fair"
	AccuracyPoor      = "poor"
)

// ClassifyAccuracy buckets the deviation of actual from target.
// excellent <=5%, good <=10%, fair <=20%, poor otherwise.
func ClassifyAccuracy(target, actual int) string {
	if target <= 0 {
		return AccuracyPoor
	}
	dev := float64(actual-target) / float64(target)
	if dev < 0 {
		dev = -dev
	}
	switch {
	case dev <= 0.05:
		return AccuracyExcellent
	case dev <= 0.10:
		return AccuracyGood
	case dev <= 0.20:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}

// EpisodeMetadata is computed by the orchestrator when a job completes.
type EpisodeMetadata struct {
	DurationSec          float64 `json:"duration_seconds"`
	WordCount            int     `json:"word_count"`
	Chapters             int     `json:"chapters"`
	ActualWordsPerMinute float64 `json:"actual_words_per_minute"`
	Accuracy             string  `json:"accuracy"`
	GenerationTimeMs     int64   `json:"generation_time_ms"`
	Bitrate              string  `json:"bitrate,omitempty"`
	Codec                string  `json:"codec,omitempty"`
	SampleRate           string  `json:"sample_rate,omitempty"`
	DriveURL             string  `json:"gdrive_url,omitempty"`
}

// Artifacts holds every intermediate document produced for one episode.
type Artifacts struct {
	Plan        string   `json:"plan"`
	Research    string   `json:"research"`
	Outline     string   `json:"outline"`
	Scripts     []string `json:"scripts"`
	ToneScript  string   `json:"toneScript"`
	FinalScript string   `json:"finalScript"`
}
