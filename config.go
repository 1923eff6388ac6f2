package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CouncilModel describes one configured council member. Immutable after LoadConfig.
type CouncilModel struct {
	ID          string        `json:"id"`           // OpenRouter identifier, e.g. "openai/gpt-5.1"
	DisplayName string        `json:"display_name"` // Short name for logs and the UI
	Timeout     time.Duration `json:"-"`            // Per-call timeout passed to the client
}

// Configuration constants
var (
	// OpenRouterAPIKey is the API key for OpenRouter
	OpenRouterAPIKey string

	// OpenRouterAPIURL is the endpoint for OpenRouter API
	OpenRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	// CouncilModels is the roster queried in Stage 1 and asked to judge in Stage 2
	CouncilModels = []CouncilModel{
		{ID: "openai/gpt-5.1", DisplayName: "GPT 5.1"},
		{ID: "google/gemini-3-pro-preview", DisplayName: "Gemini 3 Pro"},
		{ID: "anthropic/claude-sonnet-4.5", DisplayName: "Claude Sonnet 4.5"},
		{ID: "x-ai/grok-4", DisplayName: "Grok 4"},
	}

	// ChairmanModel synthesizes the final answer in Stage 3.
	// May but need not be a council member.
	ChairmanModel = CouncilModel{ID: "google/gemini-3-pro-preview", DisplayName: "Gemini 3 Pro"}

	// TitleModel generates conversation titles, picked for speed over quality
	TitleModel = CouncilModel{ID: "google/gemini-2.5-flash", DisplayName: "Gemini Flash"}

	// DataDir is the directory for conversation storage
	DataDir = "data/conversations"

	// Timeout constants
	ModelQueryTimeout = 120 * time.Second
	TitleGenTimeout   = 30 * time.Second

	// CORS allowed origins (configurable via environment)
	// In development (empty/default), allows any localhost port
	// In production, set CORS_ALLOWED_ORIGINS environment variable
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize is the maximum allowed request body size (1MB)
	MaxRequestBodySize int64 = 1 << 20

	// PageCacheTTL is the time-to-live for fetched URL content
	PageCacheTTL = 5 * time.Minute
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file - try multiple locations
	envLocations := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	// Try to find and load .env file
	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}

	if !envLoaded {
		log.Printf("Warning: .env file not found in any expected location")
	}

	// Get OpenRouter API key
	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		log.Fatal("OPENROUTER_API_KEY environment variable is required")
	}

	if apiURL := os.Getenv("OPENROUTER_API_URL"); apiURL != "" {
		OpenRouterAPIURL = apiURL
	}

	// Override the council roster from environment if provided
	// (comma-separated OpenRouter model identifiers)
	if models := os.Getenv("COUNCIL_MODELS"); models != "" {
		roster := []CouncilModel{}
		for _, id := range strings.Split(models, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				roster = append(roster, CouncilModel{ID: id, DisplayName: displayNameFor(id)})
			}
		}
		if len(roster) == 0 {
			log.Fatal("COUNCIL_MODELS must list at least one model")
		}
		CouncilModels = roster
	}

	if chairman := os.Getenv("CHAIRMAN_MODEL"); chairman != "" {
		ChairmanModel = CouncilModel{ID: chairman, DisplayName: displayNameFor(chairman)}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		DataDir = dataDir
	}

	// Apply the per-call timeout to every configured model
	for i := range CouncilModels {
		CouncilModels[i].Timeout = ModelQueryTimeout
	}
	ChairmanModel.Timeout = ModelQueryTimeout
	TitleModel.Timeout = TitleGenTimeout

	// Load CORS origins from environment if provided
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = []string{}
		for _, origin := range strings.Split(corsOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
			}
		}
	}

	log.Println("Configuration loaded successfully")
}

// displayNameFor derives a human-readable name from an OpenRouter identifier,
// e.g. "anthropic/claude-sonnet-4.5" -> "claude-sonnet-4.5".
func displayNameFor(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 && idx < len(id)-1 {
		return id[idx+1:]
	}
	return id
}

// councilModelIDs returns just the identifiers of the configured council models.
func councilModelIDs(models []CouncilModel) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}
