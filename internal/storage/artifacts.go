// Package storage persists completed episodes: the artifact JSON next to the
// final MP3, the sqlite episode index, and optional Google Drive publishing.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devashishk/podcast-forge/internal/types"
)

// ArtifactsPath returns the artifact JSON path for a job.
func ArtifactsPath(outputDir, jobID string) string {
	return filepath.Join(outputDir, jobID+"-artifacts.json")
}

type artifactsDocument struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Artifacts *types.Artifacts `json:"artifacts"`
}

// SaveArtifacts writes every pipeline document as a single JSON file next to
// the final MP3 and returns its path.
func SaveArtifacts(outputDir, jobID string, artifacts *types.Artifacts) (string, error) {
	doc := artifactsDocument{
		ID:        jobID,
		Timestamp: time.Now(),
		Artifacts: artifacts,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifacts: %v", err)
	}

	path := ArtifactsPath(outputDir, jobID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save artifacts: %v", err)
	}
	return path, nil
}
