// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/engine"
	"github.com/hyperjump/kotae/internal/importer"
	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/schedule"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/textproc"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kotae server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "add":
		runAdd()
	case "train":
		runTrain()
	case "import":
		runImport()
	case "categories":
		runCategories()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (matching scores, cache activity, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	eng := components.Engine
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(cfg.Storage.ModelDir, cfg.Storage.ModelBase, func() {
		if err := eng.ReloadModel(); err != nil {
			logger.Warn("model reload failed, keeping current strategy", zap.Error(err))
		}
	}, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start artifact watcher", zap.Error(err))
	}

	srv := server.NewServer(
		components.Engine,
		components.Store,
		components.Schedules,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves any flags (and their values) that appear after the
// question to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseOutputFormat(raw string) (cli.OutputFormat, error) {
	switch raw {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return cli.OutputText, fmt.Errorf("unknown output format %q; use text or json", raw)
	}
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally without a server)")
	topK := fs.Int("top-k", 3, "number of candidate matches to return")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	_ = fs.Parse(askArgs)

	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	query := models.AskQuery{Question: question, TopK: *topK}
	if err := query.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid query: %v\n", err)
		os.Exit(1)
	}

	var result *models.MatchResult
	if *serverURL != "" {
		result, err = askViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		r := components.Engine.Ask(query.Question, query.TopK)
		result = &r
	}

	if err := cli.WriteMatchResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, query models.AskQuery) (*models.MatchResult, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.MatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = add locally without a server)")
	category := fs.String("category", "", "category for the new pair (required)")
	question := fs.String("question", "", "question text (required)")
	answer := fs.String("answer", "", "answer text (required)")
	keywords := fs.String("keywords", "", "comma-separated keywords")
	_ = fs.Parse(os.Args[2:])

	input := models.QAPairInput{
		Category: *category,
		Question: *question,
		Answer:   *answer,
	}
	for _, kw := range strings.Split(*keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			input.Keywords = append(input.Keywords, kw)
		}
	}
	if err := input.Validate(); err != nil {
		fmt.Println("Usage: kotae add -category <name> -question <text> -answer <text> [-keywords a,b]")
		fmt.Printf("Invalid input: %v\n", err)
		os.Exit(1)
	}

	if *serverURL != "" {
		body, _ := json.Marshal(input)
		resp, err := http.Post(*serverURL+"/api/v1/qa-pairs", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added %q to %s\n", input.Question, input.Category)
		return
	}

	components := mustInitialize(*configPath)
	defer components.Close()
	if _, err := components.Engine.AddEntry(input); err != nil {
		fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Added %q to %s\n", input.Question, input.Category)
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = train locally without a server)")
	epochs := fs.Int("epochs", 0, "training epochs (0 = default)")
	batchSize := fs.Int("batch-size", 0, "training batch size (0 = default)")
	learningRate := fs.Float64("learning-rate", 0, "learning rate (0 = default)")
	seed := fs.Int64("seed", 0, "random seed for reproducible runs")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	req := models.TrainRequest{
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *learningRate,
		Seed:         *seed,
	}

	var result *models.TrainResult
	if *serverURL != "" {
		result, err = trainViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		result, err = components.Engine.Train(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteTrainResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func trainViaHTTP(serverURL string, req models.TrainRequest) (*models.TrainResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/train", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.TrainResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae import [flags] <workbook.xlsx>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	report, err := importer.New(components.Engine, logger).ImportFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d pair(s) from %s (%d skipped)\n", report.Imported, path, report.Skipped)
}

func runCategories() {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	components := mustInitialize(*configPath)
	defer components.Close()

	categories := components.Store.Categories()
	counts := make(map[string]int, len(categories))
	for _, name := range categories {
		counts[name] = len(components.Store.PairsIn(name))
	}
	if err := cli.WriteCategories(os.Stdout, categories, counts, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /health.
type statusResponse struct {
	Status       string `json:"status"`
	Categories   int    `json:"categories"`
	QAPairs      int    `json:"qa_pairs"`
	NeuralActive bool   `json:"neural_active"`
	Strategy     string `json:"strategy"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read local state)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components := mustInitialize(*configPath)
		defer components.Close()
		categories, pairs := components.Store.Counts()
		status = statusResponse{
			Status:       "ok",
			Categories:   categories,
			QAPairs:      pairs,
			NeuralActive: components.Engine.NeuralActive(),
			Strategy:     components.Engine.StrategyName(),
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("status:         %s\n", status.Status)
		fmt.Printf("categories:     %d\n", status.Categories)
		fmt.Printf("qa_pairs:       %d\n", status.QAPairs)
		fmt.Printf("strategy:       %s\n", status.Strategy)
		fmt.Printf("neural_active:  %t\n", status.NeuralActive)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/health")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Store     *kb.Store
	Engine    *engine.Engine
	Schedules *schedule.Store
}

func (c *Components) Close() {
	if c.Engine != nil {
		c.Engine.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Schedules != nil {
		_ = c.Schedules.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := kb.Open(cfg.Storage.KnowledgeBasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}

	normalizer := textproc.NewNormalizer(textproc.WithStopwords(cfg.Normalizer.ExtraStopwords...))
	eng, err := engine.New(store, normalizer, engine.Config{
		ModelDir:     cfg.Storage.ModelDir,
		ModelBase:    cfg.Storage.ModelBase,
		CacheSize:    cfg.Engine.CacheSize,
		MaxSeqLen:    cfg.Training.MaxSeqLen,
		MinTokenFreq: cfg.Training.MinTokenFreq,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	schedules, err := schedule.NewStore(cfg.Storage.ScheduleDBPath)
	if err != nil {
		eng.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to open schedule store: %w", err)
	}

	return &Components{
		Store:     store,
		Engine:    eng,
		Schedules: schedules,
	}, nil
}

// mustInitialize loads config, builds a quiet logger, and initializes all
// components, exiting on failure. Used by the direct (serverless) commands.
func mustInitialize(configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components
}

func printUsage() {
	fmt.Println(`kotae - Course QA chatbot engine

Usage:
  kotae server [flags]                 Start the HTTP server
  kotae ask [flags] <question>         Ask a question
  kotae add [flags]                    Add a QA pair to the knowledge base
  kotae train [flags]                  Train the similarity model
  kotae import [flags] <file.xlsx>     Bulk-import QA pairs from a workbook
  kotae categories [flags]             List knowledge base categories
  kotae status [flags]                 Show engine status
  kotae version                        Show version
  kotae help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (matching scores, cache activity, etc.)

Ask Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to answer locally.
  --top-k int        Number of candidate matches to return (default: 3)
  --output string    Output format: text or json (default: text)

Add Flags:
  --category string  Category for the new pair (required)
  --question string  Question text (required)
  --answer string    Answer text (required)
  --keywords string  Comma-separated keywords
  --server string    Server URL (default: http://localhost:8080). Use empty for local mode.

Train Flags:
  --epochs int            Training epochs (default from config)
  --batch-size int        Batch size (default from config)
  --learning-rate float   Learning rate (default from config)
  --seed int              Random seed for reproducible runs
  --server string         Server URL (default: http://localhost:8080). Use empty for local mode.
  --output string         Output format: text or json (default: text)

Examples:
  kotae server
  kotae ask 课程什么时候开始？
  kotae ask --output json "期末考试是什么时候"
  kotae add -category 课程安排 -question 怎么请假？ -answer 联系任课教师。 -keywords 请假
  kotae train --epochs 20 --seed 42
  kotae import qa_pairs.xlsx
  kotae categories
  kotae status --output json`)
}
