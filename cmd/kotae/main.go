// Package main is the Kotae CLI entry point.
package main

import (
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

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/broker"
	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/correlator"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/kb"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/paginate"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir uses the project's
// config (including debug).
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
	case "build":
		runBuild()
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
	debug := fs.Bool("debug", false, "enable debug logging (broker events, retrieval scores, etc.)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	mq, err := broker.Dial(cfg.Broker.URL, cfg.Broker.QuestionQueue, cfg.Broker.AnswerQueue, logger)
	if err != nil {
		logger.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer mq.Close()

	orchestrator := answer.New(components.Engine, components.Indexer, mq, logger)

	consumeCtx, consumeCancel := context.WithCancel(context.Background())
	defer consumeCancel()
	go func() {
		err := mq.ConsumeQuestions(consumeCtx, func(ctx context.Context, ev models.QuestionEvent, correlationID string) {
			if err := orchestrator.Handle(ctx, ev, correlationID); err != nil {
				logger.Error("publish answer failed",
					zap.String("correlation_id", correlationID),
					zap.Error(err),
				)
			}
		})
		if err != nil && consumeCtx.Err() == nil {
			logger.Fatal("Question consumer failed", zap.Error(err))
		}
	}()

	var watchSvc *watcher.Watcher
	if cfg.Knowledge.Watch {
		idx := components.Indexer
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.Knowledge.BasePath, func() {
			n, err := idx.Build(context.Background())
			if err != nil {
				logger.Warn("watch rebuild failed", zap.Error(err))
				return
			}
			logger.Info("corpus changed, index rebuilt", zap.Int("chunks", n))
		}, watchOpts...)
		if err := watchSvc.Start(consumeCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Store, components.Indexer, components.Encoder, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	consumeCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotae ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "Question is all remaining arguments joined by spaces. Multi-word questions work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
The question is published to the broker and the reply is awaited under a fresh
correlation id. Long answers are paginated; the first page is printed and the
full page list is stored in the user's session.

Examples:
  kotae ask what are your opening hours
  kotae ask --user 42 "how do I reset my password"
  kotae ask --timeout 10 quick question
`)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	userID := fs.String("user", "cli", "user id the session is stored under")
	timeoutSec := fs.Int("timeout", 0, "seconds to wait for a reply (default from config)")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		printAskUsage(fs)
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	timeout := time.Duration(cfg.Ask.TimeoutSeconds) * time.Second
	if *timeoutSec > 0 {
		timeout = time.Duration(*timeoutSec) * time.Second
	}

	mq, err := broker.Dial(cfg.Broker.URL, cfg.Broker.QuestionQueue, cfg.Broker.AnswerQueue, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to broker: %v\n", err)
		os.Exit(1)
	}
	defer mq.Close()

	corr := correlator.New(mq, logger)
	consumeCtx, consumeCancel := context.WithCancel(context.Background())
	defer consumeCancel()
	go func() {
		_ = mq.ConsumeAnswers(consumeCtx, func(correlationID string, body []byte) {
			corr.Resolve(correlationID, body)
		})
	}()

	correlationID := uuid.NewString()
	body, err := corr.Send(consumeCtx, models.QuestionEvent{UserID: *userID, Question: question}, correlationID, timeout)
	corr.Drain()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}

	var ev models.AnswerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		fmt.Fprintf(os.Stderr, "Malformed answer: %v\n", err)
		os.Exit(1)
	}
	if ev.Status != models.StatusOK {
		fmt.Fprintf(os.Stderr, "No answer: %s\n", ev.Message)
		os.Exit(1)
	}

	pages := paginate.New(cfg.Knowledge.MinChunkLen, cfg.Knowledge.MaxChunkLen).Split(ev.Answer)
	firstPage := ev.Answer
	if len(pages) > 0 {
		firstPage = pages[0]
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	sessions := session.NewStore(rdb)
	if saved, err := sessions.Save(context.Background(), *userID, pages); err != nil {
		logger.Warn("session save failed", zap.Error(err))
	} else {
		firstPage = saved
	}

	fmt.Println(firstPage)
	if len(pages) > 1 {
		fmt.Fprintf(os.Stderr, "\n[page 1 of %d]\n", len(pages))
	}
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

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

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	n, err := components.Indexer.Build(context.Background())
	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Knowledge base built: %d chunk(s)\n", n)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Chunks     int64 `json:"chunks"`
	Embeddings int64 `json:"embeddings"`
	Dimensions int   `json:"dimensions"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8090", "server URL (empty = read the cache store directly)")
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
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		store := cache.NewStore(rdb)
		ctx := context.Background()
		chunks, err := store.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		embeddings, err := store.CountEmbeddings(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count embeddings failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Chunks:     chunks,
			Embeddings: embeddings,
			Dimensions: cfg.Encoder.Dimensions,
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
		fmt.Printf("chunks:      %d   # count of stored answer chunks\n", status.Chunks)
		fmt.Printf("embeddings:  %d   # count of stored vectors\n", status.Embeddings)
		fmt.Printf("dimensions:  %d   # encoder vector size\n", status.Dimensions)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
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
	Redis   *redis.Client
	Store   *cache.Store
	Encoder embedding.Encoder
	Indexer *kb.Indexer
	Engine  *retrieval.Engine
}

func (c *Components) Close() {
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to cache store: %w", err)
	}
	store := cache.NewStore(rdb)

	var encoder embedding.Encoder
	onnxEncoder, err := embedding.NewONNXEncoder(
		cfg.Encoder.ModelPath,
		cfg.Encoder.Dimensions,
		cfg.Encoder.MaxTokens,
		cfg.Encoder.CacheSize,
	)
	if err != nil {
		if logger != nil {
			logger.Warn("encoder model unavailable, using mock encoder",
				zap.String("model_path", cfg.Encoder.ModelPath),
				zap.Error(err))
		}
		encoder = embedding.NewMockEncoder(cfg.Encoder.Dimensions)
	} else {
		encoder = onnxEncoder
	}

	loader := kb.NewLoader(cfg.Knowledge.BasePath, cfg.Knowledge.Delimiter)
	paginator := paginate.New(cfg.Knowledge.MinChunkLen, cfg.Knowledge.MaxChunkLen)

	idxOpts := []kb.IndexerOption{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, kb.WithLogger(logger))
	}
	idx := kb.NewIndexer(loader, paginator, encoder, cfg.Encoder.DocumentInstruction, store, idxOpts...)

	engineOpts := []retrieval.EngineOption{}
	if debug && logger != nil {
		engineOpts = append(engineOpts, retrieval.WithLogger(logger))
	}
	engine := retrieval.NewEngine(store, encoder, cfg.Encoder.QueryInstruction, engineOpts...)

	return &Components{
		Redis:   rdb,
		Store:   store,
		Encoder: encoder,
		Indexer: idx,
		Engine:  engine,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Conversational support answer service

Usage:
  kotae server [flags]          Start the broker consumer and admin API
  kotae ask [flags] <question>  Publish a question and await the reply
  kotae build [flags]           Rebuild the knowledge base index
  kotae status [flags]          Show knowledge base status
  kotae version                 Show version
  kotae help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (broker events, retrieval scores, etc.)

Ask Flags:
  --config string    Config file path
  --user string      User id the session is stored under (default: cli)
  --timeout int      Seconds to wait for a reply (default from config: 60)

Build Flags:
  --config string    Config file path

Status Flags:
  --config string    Config file path (for direct cache store mode)
  --server string    Server URL (default: http://localhost:8090). Use empty (--server "") for direct access.
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ask what are your opening hours
  kotae ask --user 42 "how do I reset my password"
  kotae build
  kotae status
  kotae status --output json`)
}
