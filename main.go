package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"personabot/pkg/bot"
	"personabot/pkg/cache"
	"personabot/pkg/completion"
	"personabot/pkg/config"
	"personabot/pkg/persona"
	"personabot/pkg/surreal"
)

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	token := os.Getenv("DISCORD_TOKEN")
	completionKey := os.Getenv("COMPLETION_API_KEY")
	adminID := os.Getenv("ADMIN_USER_ID")

	// Check each required environment variable individually for better error messages
	if token == "" {
		log.Fatal("Missing required environment variable: DISCORD_TOKEN")
	}
	if completionKey == "" {
		log.Fatal("Missing required environment variable: COMPLETION_API_KEY")
	}
	if adminID == "" {
		log.Fatal("Missing required environment variable: ADMIN_USER_ID")
	}

	completionURL := os.Getenv("COMPLETION_API_URL") // empty = OpenAI default

	completionClient := completion.NewClient(
		completionKey,
		completionURL,
		cfg.ModelSettings.Model,
		cfg.ModelSettings.Temperature,
		cfg.ModelSettings.TopP,
		cfg.ModelSettings.MaxTokens,
	)

	// Initialize Persona Store (SurrealDB)
	surrealHost := os.Getenv("SURREAL_DB_HOST")
	surrealUser := os.Getenv("SURREAL_DB_USER")
	surrealPass := os.Getenv("SURREAL_DB_PASS")
	surrealNS := os.Getenv("SURREAL_DB_NAMESPACE")
	surrealDB := os.Getenv("SURREAL_DB_DATABASE")

	if surrealHost == "" {
		log.Fatal("Missing required environment variable: SURREAL_DB_HOST")
	}
	if surrealUser == "" {
		log.Fatal("Missing required environment variable: SURREAL_DB_USER")
	}
	if surrealPass == "" {
		log.Fatal("Missing required environment variable: SURREAL_DB_PASS")
	}
	if surrealNS == "" {
		surrealNS = "personabot" // Default
	}
	if surrealDB == "" {
		surrealDB = "personas" // Default
	}

	// Add protocol if missing
	if !strings.HasPrefix(surrealHost, "ws://") && !strings.HasPrefix(surrealHost, "wss://") {
		surrealHost = "wss://" + surrealHost + "/rpc"
	}

	log.Printf("Connecting to SurrealDB at %s (NS: %s, DB: %s)", surrealHost, surrealNS, surrealDB)
	surrealClient, err := surreal.NewClient(surrealHost, surrealUser, surrealPass, surrealNS, surrealDB)
	if err != nil {
		log.Fatalf("Failed to connect to SurrealDB: %v", err)
	}
	defer surrealClient.Close()

	var store persona.Store = persona.NewSurrealStore(surrealClient)

	// Optional Redis cache for the default-persona hot path
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := cache.NewRedisCache(redisURL, "personabot")
		if err != nil {
			log.Printf("Redis unavailable, continuing without cache: %v", err)
		} else {
			defer redisCache.Close()
			store = persona.NewCachedStore(store, redisCache)
			log.Println("Redis cache enabled for persona lookups")
		}
	}

	// Seed the default persona on first run
	seedContent, err := os.ReadFile(cfg.Persona.SeedFile)
	if err != nil {
		log.Fatalf("Failed to read persona seed file %s: %v", cfg.Persona.SeedFile, err)
	}
	if err := persona.EnsureDefault(store, cfg.Persona.DefaultName, strings.TrimSpace(string(seedContent)), adminID); err != nil {
		log.Fatalf("Failed to ensure default persona: %v", err)
	}

	// Initialize Bot Handler
	handler := bot.NewHandler(completionClient, store, adminID, cfg.History.FetchLimit)

	// Create Discord Session
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}
	dg.Identify.Intents |= discordgo.IntentMessageContent

	// Register Handlers
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	// Open Connection
	if err := dg.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	// Set Bot ID in handler (so it can ignore itself)
	handler.SetBotID(dg.State.User.ID)

	// Register slash commands (empty string = global, or specify guild ID for faster testing)
	guildID := os.Getenv("DISCORD_GUILD_ID") // Optional: set this for faster command updates during development
	registeredCommands, err := bot.RegisterSlashCommands(dg, guildID)
	if err != nil {
		log.Fatalf("Error registering slash commands: %v", err)
	}

	// Cleanup function to unregister commands on shutdown
	defer func() {
		if err := bot.UnregisterSlashCommands(dg, guildID, registeredCommands); err != nil {
			log.Printf("Error unregistering slash commands: %v", err)
		}
	}()

	log.Println("Persona bot is now running. Press CTRL-C to exit.")

	// Wait for signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	dg.Close()
}
