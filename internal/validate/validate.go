// Package validate checks briefs against the configured constraints and
// produces the estimates surfaced by the validation endpoint.
package validate

import (
	"fmt"
	"strings"

	"github.com/devashishk/podcast-forge/internal/config"
	"github.com/devashishk/podcast-forge/internal/types"
)

// Estimates are the derived numbers shown to the caller before submitting.
type Estimates struct {
	TargetWords       int `json:"target_words"`
	WordsPerChapter   int `json:"words_per_chapter"`
	EstimatedDuration int `json:"estimated_duration_min"`
	ProcessingTimeSec int `json:"processing_time_sec"`
}

// Result is the outcome of brief validation.
type Result struct {
	Valid           bool      `json:"valid"`
	Errors          []string  `json:"errors,omitempty"`
	Warnings        []string  `json:"warnings"`
	Recommendations []string  `json:"recommendations"`
	Estimates       Estimates `json:"estimates"`
}

// Brief validates a brief. Errors make the brief unsubmittable; warnings and
// recommendations never block acceptance.
func Brief(brief types.Brief, cfg *config.Config) Result {
	var result Result
	c := cfg.Constraints

	topic := strings.TrimSpace(brief.Topic)
	if topic == "" {
		result.Errors = append(result.Errors, "topic is required")
	} else if len(brief.Topic) > c.MaxTopicLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("topic exceeds %d characters", c.MaxTopicLength))
	}
	if len(brief.Focus) > c.MaxFocusLength {
		result.Errors = append(result.Errors,
			fmt.Sprintf("focus exceeds %d characters", c.MaxFocusLength))
	}
	if !types.IsAllowedMood(brief.Mood) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("mood must be one of: %s", strings.Join(types.AllowedMoods, ", ")))
	}
	if !types.IsAllowedStyle(brief.Style) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("style must be one of: %s", strings.Join(types.AllowedStyles, ", ")))
	}
	if brief.Chapters < c.MinChapters || brief.Chapters > c.MaxChapters {
		result.Errors = append(result.Errors,
			fmt.Sprintf("chapters must be between %d and %d", c.MinChapters, c.MaxChapters))
	}
	if brief.DurationMin < c.MinDurationMin || brief.DurationMin > c.MaxDurationMin {
		result.Errors = append(result.Errors,
			fmt.Sprintf("duration must be between %d and %d minutes", c.MinDurationMin, c.MaxDurationMin))
	}

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		return result
	}

	budget := types.NewWordBudget(brief.DurationMin, brief.Chapters)
	result.Estimates = Estimates{
		TargetWords:       budget.TotalWords,
		WordsPerChapter:   budget.PerChapter,
		EstimatedDuration: brief.DurationMin,
		ProcessingTimeSec: 12 * brief.DurationMin,
	}

	if brief.Chapters > brief.DurationMin*2 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d chapters in %d minutes leaves very little time per chapter", brief.Chapters, brief.DurationMin))
	}
	if budget.PerChapter < 100 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("chapters average only %d spoken words; dialogue may feel abrupt", budget.PerChapter))
	}

	if brief.DurationMin >= 20 && brief.Chapters < 3 {
		result.Recommendations = append(result.Recommendations,
			"long episodes flow better with at least 3 chapters")
	}
	if brief.Focus == "" {
		result.Recommendations = append(result.Recommendations,
			"adding a focus narrows research and improves factual density")
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	return result
}
