package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	OpenAI struct {
		APIKeyEnv string `yaml:"api_key_env"`
		BaseURL   string `yaml:"base_url"`
		ChatModel string `yaml:"chat_model"`
		MaxTokens int    `yaml:"max_tokens"`
		TimeoutS  int    `yaml:"timeout_seconds"`
	} `yaml:"openai"`

	TTS struct {
		Model  string `yaml:"model"`
		Voices struct {
			Host1 string `yaml:"host1"`
			Host2 string `yaml:"host2"`
		} `yaml:"voices"`
		Speed  float64 `yaml:"speed"`
		Format string  `yaml:"format"`
	} `yaml:"tts"`

	Performance struct {
		WordsPerMinute      int `yaml:"words_per_minute"`
		TolerancePercent    int `yaml:"tolerance_percent"`
		MaxConcurrentAgents int `yaml:"max_concurrent_agents"`
	} `yaml:"performance"`

	// Optional remote agent ids; unset values force the chat fallback for that role.
	Agents struct {
		PlannerID    string `yaml:"planner_id"`
		ResearcherID string `yaml:"researcher_id"`
		OutlinerID   string `yaml:"outliner_id"`
		ScripterID   string `yaml:"scripter_id"`
		ToneID       string `yaml:"tone_id"`
		EditorID     string `yaml:"editor_id"`
	} `yaml:"agents"`

	Constraints struct {
		MinChapters    int `yaml:"min_chapters"`
		MaxChapters    int `yaml:"max_chapters"`
		MinDurationMin int `yaml:"min_duration_min"`
		MaxDurationMin int `yaml:"max_duration_min"`
		MaxTopicLength int `yaml:"max_topic_length"`
		MaxFocusLength int `yaml:"max_focus_length"`
	} `yaml:"constraints"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir    string `yaml:"temp_dir"`
		OutputDir  string `yaml:"output_dir"`
		Database   string `yaml:"database"`
		JinglePath string `yaml:"jingle_path"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

// Load reads the configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Default returns a configuration with every default applied and no file read.
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.OpenAI.APIKeyEnv == "" {
		c.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o"
	}
	if c.OpenAI.MaxTokens == 0 {
		c.OpenAI.MaxTokens = 4096
	}
	if c.OpenAI.TimeoutS == 0 {
		c.OpenAI.TimeoutS = 60
	}
	if c.TTS.Model == "" {
		c.TTS.Model = "tts-1"
	}
	if c.TTS.Voices.Host1 == "" {
		c.TTS.Voices.Host1 = "alloy"
	}
	if c.TTS.Voices.Host2 == "" {
		c.TTS.Voices.Host2 = "echo"
	}
	if c.TTS.Speed == 0 {
		c.TTS.Speed = 1.0
	}
	if c.TTS.Format == "" {
		c.TTS.Format = "mp3"
	}
	if c.Performance.WordsPerMinute == 0 {
		c.Performance.WordsPerMinute = 150
	}
	if c.Performance.TolerancePercent == 0 {
		c.Performance.TolerancePercent = 5
	}
	if c.Performance.MaxConcurrentAgents == 0 {
		c.Performance.MaxConcurrentAgents = 5
	}
	if c.Constraints.MinChapters == 0 {
		c.Constraints.MinChapters = 1
	}
	if c.Constraints.MaxChapters == 0 {
		c.Constraints.MaxChapters = 10
	}
	if c.Constraints.MinDurationMin == 0 {
		c.Constraints.MinDurationMin = 1
	}
	if c.Constraints.MaxDurationMin == 0 {
		c.Constraints.MaxDurationMin = 120
	}
	if c.Constraints.MaxTopicLength == 0 {
		c.Constraints.MaxTopicLength = 500
	}
	if c.Constraints.MaxFocusLength == 0 {
		c.Constraints.MaxFocusLength = 1000
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "episodes.db"
	}
	if c.Storage.JinglePath == "" {
		c.Storage.JinglePath = "assets/jingle.mp3"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 6
	}
	if c.GoogleDrive.FolderName == "" {
		c.GoogleDrive.FolderName = "Podcasts"
	}
}

// APIKey resolves the OpenAI API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.OpenAI.APIKeyEnv)
}

// RemoteAgentID returns the configured remote agent id for a role, or "".
func (c *Config) RemoteAgentID(role string) string {
	switch role {
	case "planner":
		return c.Agents.PlannerID
	case "researcher":
		return c.Agents.ResearcherID
	case "outliner":
		return c.Agents.OutlinerID
	case "scripter":
		return c.Agents.ScripterID
	case "tone":
		return c.Agents.ToneID
	case "editor":
		return c.Agents.EditorID
	}
	return ""
}
