/*
 * @Date: 2025-04-15 10:43:09
 * @Editors: Mr wpl
 * @Description: 主程序入口
 */
package main

import (
	"flag"
	"os"
	"strings"

	"malsig/internal/config"
	"malsig/internal/engine"
	"malsig/pkg/logging"
)

func main() {
	// --- Argument Parsing ---
	configPath := flag.String("config", "config.yaml", "Path to configuration file (yaml or json)")
	targetPathsRaw := flag.String("path", "", "Comma-separated files or directories to analyze (required)")
	exclusionsRaw := flag.String("exclude", "", "Comma-separated files or directories to exclude")
	outputFormat := flag.String("format", "", "Output format (console, json, csv). Overrides config file.")
	reportPath := flag.String("output", "", "Path to save report file (for json/csv formats)")

	flag.Parse()

	log := logging.New("info")

	if *targetPathsRaw == "" {
		log.Error().Msg("-path argument is required")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.LoadConfig(*configPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logging.New(cfg.LogLevel)

	// Override config with flags if provided
	if *outputFormat != "" {
		cfg.Output.Format = *outputFormat
	}

	// --- Initialize Engine ---
	analysisEngine, err := engine.NewEngine(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine")
	}

	// --- Prepare Task ---
	paths := strings.Split(*targetPathsRaw, ",")
	exclusions := []string{}
	if *exclusionsRaw != "" {
		exclusions = strings.Split(*exclusionsRaw, ",")
	}
	for i := range paths {
		paths[i] = strings.TrimSpace(paths[i])
	}
	for i := range exclusions {
		exclusions[i] = strings.TrimSpace(exclusions[i])
	}

	task := &engine.Task{
		Paths:        paths,
		Exclusions:   exclusions,
		ReportPath:   *reportPath,
		OutputFormat: cfg.Output.Format,
	}

	// --- Run Analysis ---
	if err := analysisEngine.Run(task); err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}

	log.Info().Msg("analysis completed successfully")
}
