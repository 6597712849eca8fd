package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devashishk/podcast-forge/internal/types"
)

func TestSaveArtifacts(t *testing.T) {
	dir := t.TempDir()
	artifacts := &types.Artifacts{
		Plan:        "## Overview\nplan",
		Research:    "## Executive Summary\nnotes",
		Outline:     "## Opening Hook\noutline",
		Scripts:     []string{"**Host 1:** one", "**Host 1:** two"},
		ToneScript:  "**Host 1:** [calm] toned",
		FinalScript: "**Host 1:** [calm] final",
	}

	path, err := SaveArtifacts(dir, "job-123", artifacts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job-123-artifacts.json"), path)
	assert.Equal(t, ArtifactsPath(dir, "job-123"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		ID        string           `json:"id"`
		Artifacts *types.Artifacts `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "job-123", doc.ID)
	assert.Equal(t, artifacts.Plan, doc.Artifacts.Plan)
	assert.Len(t, doc.Artifacts.Scripts, 2)
	assert.Equal(t, artifacts.FinalScript, doc.Artifacts.FinalScript)
}

func TestEpisodeDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "episodes.db")
	db, err := NewEpisodeDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	brief := types.Brief{
		Topic:       "The history of the bicycle",
		Mood:        "neutral",
		Style:       "conversational",
		Chapters:    3,
		DurationMin: 5,
	}
	metadata := &types.EpisodeMetadata{
		DurationSec: 300.5,
		WordCount:   750,
		Chapters:    3,
		Accuracy:    types.AccuracyExcellent,
	}

	require.NoError(t, db.SaveEpisode("job-1", brief, metadata, "outputs/job-1.mp3", "outputs/job-1-artifacts.json"))

	ep, err := db.GetEpisode("job-1")
	require.NoError(t, err)
	assert.Equal(t, "The history of the bicycle", ep["topic"])
	assert.Equal(t, 3, ep["chapters"])
	assert.Equal(t, 750, ep["word_count"])
	assert.Equal(t, "excellent", ep["accuracy"])
	assert.Equal(t, "outputs/job-1.mp3", ep["audio_path"])

	require.NoError(t, db.SaveEpisode("job-2", brief, metadata, "outputs/job-2.mp3", ""))
	list, err := db.ListEpisodes(10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = db.GetEpisode("missing")
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b:c"))
	assert.Equal(t, "episode", sanitizeFilename(""))
	assert.Equal(t, "topic", sanitizeFilename("topic"))
	assert.LessOrEqual(t, len(sanitizeFilename(strings.Repeat("x", 300))), 100)
}
