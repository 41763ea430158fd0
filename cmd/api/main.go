// Package main is the entry point for the SecureTransfer API Server, which
// lets users share files through short-lived LAN and online sessions.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/server"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// Version information is set during build time through linker flags.
var (
	// version represents the release version of the application.
	version = "dev"

	// commit is the git commit hash from which the application was built.
	commit = "none"

	// buildDate is the timestamp when the application was built.
	buildDate = "unknown"
)

// init loads environment variables from a .env file if present.
func init() {
	// Not finding a .env file is fine; configuration may come from the environment.
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found or couldn't be loaded")
	}
}

func main() {
	var (
		configPath  string
		showVersion bool
		issueToken  string
	)

	flag.StringVar(&configPath, "config", "./configs/config.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.StringVar(&issueToken, "issue-token", "", "Print an access token for id:username and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("SecureTransfer API Server\nVersion: %s\nCommit: %s\nBuild Date: %s\n", version, commit, buildDate)
		os.Exit(0)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.App.Version = version
	}

	if issueToken != "" {
		token, err := accessToken(cfg, issueToken)
		if err != nil {
			fmt.Printf("Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	utils.InitLogger(cfg)

	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("Starting SecureTransfer API Server")

	utils.InitValidator()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Start blocks until a shutdown signal arrives
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

// accessToken signs an access token for a subject given as "id:username".
// Accounts live with an external identity provider; this covers local use.
func accessToken(cfg *config.AppConfig, subject string) (string, error) {
	idPart, username, ok := strings.Cut(subject, ":")
	if !ok || username == "" {
		return "", fmt.Errorf("expected id:username, got %q", subject)
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("invalid user id %q", idPart)
	}

	token, _, err := auth.NewJWTService(&cfg.JWT).GenerateAccessToken(id, username)
	return token, err
}
