// ABOUTME: Entry point for the finassist chat server
// ABOUTME: Wires config, store, model client, orchestrator and web server

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/brayanmnz/finassist/internal/broadcast"
	"github.com/brayanmnz/finassist/internal/chat"
	"github.com/brayanmnz/finassist/internal/config"
	"github.com/brayanmnz/finassist/internal/dedupe"
	"github.com/brayanmnz/finassist/internal/ledger"
	"github.com/brayanmnz/finassist/internal/llm"
	"github.com/brayanmnz/finassist/internal/orchestrator"
	"github.com/brayanmnz/finassist/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
   __ _                       _     _
  / _(_)_ __   __ _ ___  ___(_)___| |_
 | |_| | '_ \ / _' / __|/ __| / __| __|
 |  _| | | | | (_| \__ \\__ \ \__ \ |_
 |_| |_|_| |_|\__,_|___/|___/_|___/\__|
`

const (
	dedupeTTL     = 10 * time.Minute
	dedupeMaxSize = 1000
)

// demoScript is played back by `serve --demo` when no model is configured.
var demoScript = []string{
	"Based on your recent activity, ",
	"your biggest spending category this month is dining out. ",
	"Setting aside **10%** of each paycheck would cover ",
	"your savings goal in about seven months.",
}

// getConfigPath returns the path to the finassist config file.
// Priority: FINASSIST_CONFIG env var > XDG_CONFIG_HOME/finassist/config.yaml > ~/.config/finassist/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("FINASSIST_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "finassist", "config.yaml")
}

// getDataPath returns the path to the finassist data directory.
// Priority: XDG_DATA_HOME/finassist > ~/.local/share/finassist
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "finassist")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: finassist <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve [--demo]  Start the chat server")
		fmt.Println("  init            Create a new config file interactively")
		fmt.Println("  health          Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, args []string) error {
	demo := false
	for _, arg := range args {
		switch arg {
		case "--demo":
			demo = true
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
	}

	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	identities, err := config.LoadIdentities(cfg.Chat.IdentitiesPath)
	if err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:   %s\n", cfg.Server.HTTPAddr)

	// Model endpoint
	var client orchestrator.StreamClient
	if demo || cfg.Model.Name == "" {
		yellow.Print("    ▶ ")
		fmt.Println("Model:  demo (scripted responses)")
		client = &llm.ScriptedClient{Fragments: demoScript, Delay: 150 * time.Millisecond}
	} else {
		green.Print("    ▶ ")
		fmt.Printf("Model:  ")
		cyan.Println(cfg.Model.Name)
		client, err = llm.NewOpenAIClient(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Name, logger)
		if err != nil {
			return fmt.Errorf("creating model client: %w", err)
		}
	}

	fmt.Println()

	logger.Info("starting finassist",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"demo", demo,
	)

	store := chat.NewConversationStore(cfg.Chat.Conversations)
	broadcaster := broadcast.New(logger)
	defer broadcaster.Close()

	hub := web.NewHub(logger)
	defer hub.Close()
	sink := web.NewSink(hub)

	dedupeCache := dedupe.New(dedupeTTL, dedupeMaxSize)
	defer dedupeCache.Close()

	opts := orchestrator.Options{
		Publisher:     broadcaster,
		StreamTimeout: cfg.Chat.StreamTimeout,
		Identities:    identities,
		Logger:        logger,
	}

	if cfg.Database.Path != "" {
		transcript, err := ledger.Open(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("opening transcript ledger: %w", err)
		}
		defer transcript.Close()
		opts.Recorder = transcript
		logger.Info("transcript ledger enabled", "path", cfg.Database.Path)
	}

	orch := orchestrator.New(store, client, sink, opts)
	defer orch.Close()

	server := web.NewServer(store, orch, hub, broadcaster, dedupeCache, cfg.Chat.Conversations, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("finassist configuration setup")
	fmt.Println("=============================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "transcript.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8100")

	// Model endpoint
	fmt.Println("\n--- Model Configuration ---")
	useModel := prompt(reader, "Configure a model endpoint? (no = demo mode)", "yes")
	var modelBaseURL, modelName string
	configureModel := strings.ToLower(useModel) == "yes" || strings.ToLower(useModel) == "y"
	if configureModel {
		modelBaseURL = prompt(reader, "OpenAI-compatible base URL", "http://localhost:11434/v1/")
		modelName = prompt(reader, "Model name", "llama3.1:8b")
	}

	// Chat
	fmt.Println("\n--- Chat Configuration ---")
	conversationsRaw := prompt(reader, "Conversations (comma separated)", "general")
	streamTimeout := prompt(reader, "Stream timeout", "2m")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite transcript path (empty to disable)", defaultDbPath)

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# finassist configuration\n")
	cfg.WriteString("# Generated by finassist init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	if configureModel {
		cfg.WriteString("model:\n")
		cfg.WriteString(fmt.Sprintf("  base_url: \"%s\"\n", modelBaseURL))
		cfg.WriteString("  api_key: \"${FINASSIST_API_KEY}\"\n")
		cfg.WriteString(fmt.Sprintf("  name: \"%s\"\n", modelName))
		cfg.WriteString("\n")
	}

	cfg.WriteString("chat:\n")
	cfg.WriteString("  conversations:\n")
	for _, name := range strings.Split(conversationsRaw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			cfg.WriteString(fmt.Sprintf("    - \"%s\"\n", name))
		}
	}
	cfg.WriteString(fmt.Sprintf("  stream_timeout: \"%s\"\n", streamTimeout))
	cfg.WriteString("\n")

	if dbPath != "" {
		cfg.WriteString("database:\n")
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
		cfg.WriteString("\n")
	}

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  finassist serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
