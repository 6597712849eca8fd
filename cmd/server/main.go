package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/devashishk/podcast-forge/internal/agents"
	"github.com/devashishk/podcast-forge/internal/audio"
	"github.com/devashishk/podcast-forge/internal/cleanup"
	"github.com/devashishk/podcast-forge/internal/config"
	"github.com/devashishk/podcast-forge/internal/fetcher"
	"github.com/devashishk/podcast-forge/internal/handlers"
	"github.com/devashishk/podcast-forge/internal/jobs"
	"github.com/devashishk/podcast-forge/internal/llm"
	"github.com/devashishk/podcast-forge/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Printf("Config file not found (%v), using defaults", err)
		cfg = config.Default()
	}

	// Ensure directories exist
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	log.Println("Initializing components...")

	apiKey := cfg.APIKey()
	if apiKey == "" {
		log.Printf("WARNING: %s is not set; model calls will fail", cfg.OpenAI.APIKeyEnv)
	}
	callTimeout := time.Duration(cfg.OpenAI.TimeoutS) * time.Second

	// Model backends
	chatClient := llm.NewChatClient(apiKey, cfg.OpenAI.BaseURL, callTimeout)
	speechClient := llm.NewSpeechClient(apiKey, cfg.OpenAI.BaseURL, 2*time.Minute)

	var assistantClient *llm.AssistantClient
	if cfg.Agents.PlannerID != "" || cfg.Agents.ResearcherID != "" || cfg.Agents.OutlinerID != "" ||
		cfg.Agents.ScripterID != "" || cfg.Agents.ToneID != "" || cfg.Agents.EditorID != "" {
		assistantClient = llm.NewAssistantClient(apiKey, cfg.OpenAI.BaseURL, callTimeout)
		log.Println("Remote agent service configured")
	} else {
		log.Println("No remote agent ids configured - using chat backend for all agents")
	}

	runtime := agents.NewRuntime(chatClient, assistantClient, cfg.OpenAI.ChatModel, cfg.OpenAI.MaxTokens, callTimeout)
	contentFetcher := fetcher.New(2 * time.Minute)

	// Episode index
	episodes, err := storage.NewEpisodeDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize episode database: %v", err)
	}
	defer episodes.Close()

	// Google Drive client (optional - may fail if credentials not set up)
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Episodes will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive publishing enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	// Pipeline
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(jobs.OrchestratorConfig{
		Registry:   registry,
		Planner:    agents.NewPlanner(runtime, cfg.Agents.PlannerID),
		Researcher: agents.NewResearcher(runtime, contentFetcher, cfg.Agents.ResearcherID),
		Outliner:   agents.NewOutliner(runtime, cfg.Agents.OutlinerID),
		Scripter:   agents.NewScripter(runtime, cfg.Agents.ScripterID),
		Tone:       agents.NewToneAnnotator(runtime, cfg.Agents.ToneID),
		Editor:     agents.NewEditor(runtime, cfg.Agents.EditorID),
		Synthesizer: audio.NewSynthesizer(speechClient, cfg.TTS.Model,
			cfg.TTS.Voices.Host1, cfg.TTS.Voices.Host2, cfg.TTS.Speed, cfg.TTS.Format),
		Assembler:              audio.NewAssembler(cfg.Storage.JinglePath),
		Episodes:               episodes,
		Drive:                  driveClient,
		TempDir:                cfg.Storage.TempDir,
		OutputDir:              cfg.Storage.OutputDir,
		MaxConcurrentScripters: cfg.Performance.MaxConcurrentAgents,
		TolerancePercent:       float64(cfg.Performance.TolerancePercent),
	})

	workerPool := jobs.NewWorkerPool(cfg.Workers.Count, orchestrator, registry)
	workerPool.Start()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout: 30 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	jobsHandler := handlers.NewJobsHandler(registry, workerPool, cfg)
	progressHandler := handlers.NewProgressHandler(registry)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/jobs", jobsHandler.Submit)
	app.Post("/validate", jobsHandler.Validate)
	app.Get("/jobs", jobsHandler.List)
	app.Get("/jobs/:id", jobsHandler.Status)
	app.Get("/jobs/:id/artifacts", jobsHandler.Artifacts)
	app.Get("/jobs/:id/audio", jobsHandler.Audio)
	app.Post("/jobs/:id/cancel", jobsHandler.Cancel)

	// WebSocket route
	app.Get("/ws/jobs/:id", websocket.New(progressHandler.Handle))

	// Completed episode index
	app.Get("/episodes", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		list, err := episodes.ListEpisodes(limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(list)
	})

	// Get server logs
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /jobs             - Submit a podcast brief")
	log.Println("   POST /validate         - Validate a brief without submitting")
	log.Println("   GET  /jobs             - List jobs")
	log.Println("   GET  /jobs/:id         - Job status")
	log.Println("   GET  /jobs/:id/artifacts - Pipeline artifacts (completed jobs)")
	log.Println("   GET  /jobs/:id/audio   - Final episode MP3")
	log.Println("   POST /jobs/:id/cancel  - Cancel a job")
	log.Println("   GET  /ws/jobs/:id      - Live progress stream")
	log.Println("   GET  /episodes         - Completed episode index")
	log.Println("   GET  /logs             - View server logs")
	log.Println("   GET  /health           - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
