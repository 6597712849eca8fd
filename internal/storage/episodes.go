package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devashishk/podcast-forge/internal/types"
)

// EpisodeDB is the sqlite index of completed episodes.
type EpisodeDB struct {
	db *sql.DB
}

// NewEpisodeDB opens (and migrates) the episode index.
func NewEpisodeDB(dbPath string) (*EpisodeDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS episodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		topic TEXT NOT NULL,
		mood TEXT NOT NULL,
		style TEXT NOT NULL,
		chapters INTEGER NOT NULL,
		duration_seconds REAL,
		word_count INTEGER,
		accuracy TEXT,
		audio_path TEXT NOT NULL,
		artifacts_path TEXT,
		gdrive_url TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_created_at ON episodes(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &EpisodeDB{db: db}, nil
}

// SaveEpisode records a completed episode.
func (edb *EpisodeDB) SaveEpisode(jobID string, brief types.Brief, metadata *types.EpisodeMetadata, audioPath, artifactsPath string) error {
	query := `
	INSERT INTO episodes (job_id, topic, mood, style, chapters, duration_seconds, word_count, accuracy, audio_path, artifacts_path, gdrive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := edb.db.Exec(query, jobID, brief.Topic, brief.Mood, brief.Style, brief.Chapters,
		metadata.DurationSec, metadata.WordCount, metadata.Accuracy, audioPath, artifactsPath,
		metadata.DriveURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save episode: %v", err)
	}
	return nil
}

// GetEpisode retrieves one episode by job id.
func (edb *EpisodeDB) GetEpisode(jobID string) (map[string]interface{}, error) {
	query := `
	SELECT job_id, topic, mood, style, chapters, duration_seconds, word_count, accuracy, audio_path, artifacts_path, gdrive_url, created_at
	FROM episodes WHERE job_id = ?
	`

	row := edb.db.QueryRow(query, jobID)
	ep, err := scanEpisode(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %v", err)
	}
	return ep, nil
}

// ListEpisodes returns the most recent episodes.
func (edb *EpisodeDB) ListEpisodes(limit int) ([]map[string]interface{}, error) {
	query := `
	SELECT job_id, topic, mood, style, chapters, duration_seconds, word_count, accuracy, audio_path, artifacts_path, gdrive_url, created_at
	FROM episodes ORDER BY created_at DESC LIMIT ?
	`

	rows, err := edb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %v", err)
	}
	defer rows.Close()

	var episodes []map[string]interface{}
	for rows.Next() {
		ep, err := scanEpisode(rows.Scan)
		if err != nil {
			continue
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func scanEpisode(scan func(...any) error) (map[string]interface{}, error) {
	var (
		jobID, topic, mood, style          string
		accuracy, audioPath, artifactsPath string
		gdriveURL                          sql.NullString
		chapters, wordCount                int
		durationSeconds                    float64
		createdAt                          time.Time
	)

	err := scan(&jobID, &topic, &mood, &style, &chapters, &durationSeconds,
		&wordCount, &accuracy, &audioPath, &artifactsPath, &gdriveURL, &createdAt)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"job_id":           jobID,
		"topic":            topic,
		"mood":             mood,
		"style":            style,
		"chapters":         chapters,
		"duration_seconds": durationSeconds,
		"word_count":       wordCount,
		"accuracy":         accuracy,
		"audio_path":       audioPath,
		"artifacts_path":   artifactsPath,
		"gdrive_url":       gdriveURL.String,
		"created_at":       createdAt,
	}, nil
}

// Close closes the database connection.
func (edb *EpisodeDB) Close() error {
	return edb.db.Close()
}
