package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/elashya/multi-agent/internal/api"
	"github.com/elashya/multi-agent/internal/dialogue"
	"github.com/elashya/multi-agent/internal/genai"
	"github.com/elashya/multi-agent/internal/models"
	"github.com/elashya/multi-agent/internal/store"
	"github.com/elashya/multi-agent/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for mediator state data
	DefaultStateDir = "/var/lib/mediator"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "mediator.db"
	// DefaultModel is used for both personas unless overridden
	DefaultModel = "gpt-4o"
	// DefaultConsultantTemp and DefaultCustomerTemp match the original defaults
	DefaultConsultantTemp = 0.70
	DefaultCustomerTemp   = 0.45
	// DefaultTopP applies to both personas
	DefaultTopP = 1.0
	// DefaultMaxTurns bounds the dialogue in consultant/customer pairs
	DefaultMaxTurns = 12
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	if *flags.serve {
		slog.Info("Bootstrapping mediator API with configured modules")
		slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
		if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
			slog.Error("Mediator failed to run", "error", err)
			os.Exit(1)
		}
		slog.Info("Mediator exited successfully")
		return
	}

	// One-shot mode: run a single dialogue and export the transcript.
	if err := runDialogue(flags, genaiOpts); err != nil {
		slog.Error("Dialogue run failed", "error", err)
		os.Exit(1)
	}
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
	LogDir          string
	ConsultantModel string
	CustomerModel   string
	ConsultantTemp  float64
	CustomerTemp    float64
	ConsultantTopP  float64
	CustomerTopP    float64
	MaxTurns        int
}

// Flags holds command line flag values
type Flags struct {
	serve          *bool
	mode           *string
	stateDir       *string
	dbDSN          *string
	openaiKey      *string
	apiAddr        *string
	logDir         *string
	consultant     *string
	customer       *string
	consultantTemp *float64
	customerTemp   *float64
	consultantTopP *float64
	customerTopP   *float64
	maxTurns       *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("MEDIATOR_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		LogDir:          os.Getenv("LOG_DIR"),
		ConsultantModel: os.Getenv("MODEL_CONSULTANT"),
		CustomerModel:   os.Getenv("MODEL_CUSTOMER"),
		ConsultantTemp:  util.ParseFloatEnv("TEMP_CONSULTANT", DefaultConsultantTemp),
		CustomerTemp:    util.ParseFloatEnv("TEMP_CUSTOMER", DefaultCustomerTemp),
		ConsultantTopP:  util.ParseFloatEnv("TOP_P_CONSULTANT", DefaultTopP),
		CustomerTopP:    util.ParseFloatEnv("TOP_P_CUSTOMER", DefaultTopP),
		MaxTurns:        util.ParseIntEnv("MAX_TURNS", DefaultMaxTurns),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No MEDIATOR_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.LogDir == "" {
		config.LogDir = "logs"
	}
	if config.ConsultantModel == "" {
		config.ConsultantModel = DefaultModel
	}
	if config.CustomerModel == "" {
		config.CustomerModel = DefaultModel
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MEDIATOR_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"LOG_DIR", config.LogDir,
		"MODEL_CONSULTANT", config.ConsultantModel,
		"MODEL_CUSTOMER", config.CustomerModel,
		"MAX_TURNS", config.MaxTurns)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		serve:          flag.Bool("serve", false, "run the HTTP API server instead of a one-shot dialogue"),
		mode:           flag.String("mode", string(models.ModeSections), "dialogue mode: freeform, sections, or brief"),
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for mediator data (overrides $MEDIATOR_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		logDir:         flag.String("log-dir", config.LogDir, "transcript export directory (overrides $LOG_DIR)"),
		consultant:     flag.String("consultant-model", config.ConsultantModel, "consultant model id (overrides $MODEL_CONSULTANT)"),
		customer:       flag.String("customer-model", config.CustomerModel, "customer model id (overrides $MODEL_CUSTOMER)"),
		consultantTemp: flag.Float64("consultant-temp", config.ConsultantTemp, "consultant sampling temperature (overrides $TEMP_CONSULTANT)"),
		customerTemp:   flag.Float64("customer-temp", config.CustomerTemp, "customer sampling temperature (overrides $TEMP_CUSTOMER)"),
		consultantTopP: flag.Float64("consultant-top-p", config.ConsultantTopP, "consultant top-p (overrides $TOP_P_CONSULTANT)"),
		customerTopP:   flag.Float64("customer-top-p", config.CustomerTopP, "customer top-p (overrides $TOP_P_CUSTOMER)"),
		maxTurns:       flag.Int("max-turns", config.MaxTurns, "maximum consultant/customer pairs (overrides $MAX_TURNS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"serve", *flags.serve,
		"mode", *flags.mode,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"logDir", *flags.logDir,
		"consultant", *flags.consultant,
		"customer", *flags.customer,
		"maxTurns", *flags.maxTurns)

	return flags
}

// buildRunRequest assembles the run request from the resolved flags
func buildRunRequest(flags Flags) models.RunRequest {
	return models.RunRequest{
		Mode: models.DialogueMode(*flags.mode),
		Consultant: models.SamplingConfig{
			Model:       *flags.consultant,
			Temperature: *flags.consultantTemp,
			TopP:        *flags.consultantTopP,
		},
		Customer: models.SamplingConfig{
			Model:       *flags.customer,
			Temperature: *flags.customerTemp,
			TopP:        *flags.customerTopP,
		},
		MaxTurns: *flags.maxTurns,
	}
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	dsn := *flags.dbDSN
	if dsn == "" {
		dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", dsn)
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(dsn))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(dsn))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.logDir != "" {
		apiOpts = append(apiOpts, api.WithExportDir(*flags.logDir))
	}
	apiOpts = append(apiOpts, api.WithDefaults(buildRunRequest(flags)))
	return apiOpts
}

// runDialogue executes one dialogue to a terminal outcome and writes the
// transcript artifacts into the export directory.
func runDialogue(flags Flags, genaiOpts []genai.Option) error {
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	req := buildRunRequest(flags)
	ctrl, err := dialogue.NewController(client, req)
	if err != nil {
		return err
	}

	state, runErr := ctrl.Run(context.Background())
	// The transcript built so far is exported even when the run failed.
	if ctrl.Transcript().Len() > 0 {
		mdPath, jsonPath, exportErr := ctrl.Transcript().ExportFiles(*flags.logDir)
		if exportErr != nil {
			slog.Error("Transcript export failed", "error", exportErr)
		} else {
			slog.Info("Transcript written", "markdown", mdPath, "json", jsonPath)
		}
	}
	if runErr != nil {
		return runErr
	}

	slog.Info("Dialogue finished", "outcome", state.Outcome, "turn_pairs", state.TurnPairs)
	fmt.Printf("Outcome: %s after %d turn pair(s)\n", state.Outcome, state.TurnPairs)
	return nil
}
