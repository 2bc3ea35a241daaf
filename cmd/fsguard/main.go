package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"fsguard/internal/config"
	"fsguard/internal/tools"
	"github.com/rs/zerolog"
)

var version = "dev"

var (
	configPath  = flag.String("config", "fsguard.json", "Config file path (JSON or YAML)")
	debugMode   = flag.Bool("d", false, "Enable debug mode")
	logFile     = flag.String("log-file", "", "Log file path (logs disabled by default)")
	mcpMode     = flag.Bool("mcp", false, "Serve the file tools over MCP on stdio")
	printSchema = flag.Bool("schema", false, "Print the config JSON schema and exit")
)

func main() {
	flag.Parse()

	if *printSchema {
		fmt.Println(config.SchemaJSON())
		return
	}

	logger := initLogger(*debugMode, *logFile)
	logger.Info().Str("version", version).Msg("fsguard starting")

	registry, err := loadRegistry(*configPath, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to mount file tools")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *mcpMode {
		runMCPMode(logger, registry)
		return
	}

	// "-" reads tool calls from stdin
	args := flag.Args()
	if len(args) > 0 && args[0] == "-" {
		runBatchMode(logger, registry)
		return
	}

	runREPLMode(logger, registry)
}

func loadRegistry(path string, logger zerolog.Logger) (*tools.Registry, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, warning := range cfg.Validate() {
		logger.Warn().Str("field", warning.Field).Msg(warning.Message)
	}
	settings, err := cfg.Settings(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool settings: %w", err)
	}
	return tools.Mount(settings)
}

func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer = io.Discard
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
