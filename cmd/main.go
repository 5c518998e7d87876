package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"web-rag/internal/agent"
	"web-rag/internal/config"
	"web-rag/internal/embedding"
	"web-rag/internal/fetcher"
	"web-rag/internal/helper"
	"web-rag/internal/llmservice"
	"web-rag/internal/rag"
	"web-rag/internal/splitter"
	"web-rag/internal/store"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	urls := flag.String("urls", "", "Comma-separated URLs to load into the index")
	query := flag.String("query", "", "Question to answer against the index")
	usePlanner := flag.Bool("planner", false, "Route input through the LLM tool-dispatch loop instead of rule-based intent classification")
	voiceMode := flag.Bool("voice", false, "Enable voice turns in the chat loop")
	dryRun := flag.Bool("dry-run", false, "Fetch and chunk only, print the result, skip indexing")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msg("Error loading config")
		}
		cfg = config.Default()
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()

	if *dryRun {
		if *urls == "" {
			log.Fatal().Msg("Please provide URLs with the -urls flag for a dry run")
		}
		dryRunLoad(ctx, cfg, *urls)
		return
	}

	a, err := buildAgent(ctx, cfg, *usePlanner)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing")
	}

	if *urls != "" {
		report, err := a.Session().Load(ctx, fetcher.SplitURLList(*urls))
		if err != nil {
			log.Fatal().Err(err).Msg("Error loading websites")
		}
		fmt.Println(report)
		if *query == "" {
			return
		}
	}

	if *query != "" {
		result, err := a.Session().Answer(ctx, *query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering query")
		}
		fmt.Println(agent.FormatResult(result))
		return
	}

	repl := agent.NewREPL(a, os.Stdin, os.Stdout)
	if *voiceMode {
		repl.EnableVoice(&cfg.Voice)
	}
	if err := repl.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Chat loop failed")
	}
}

func buildAgent(ctx context.Context, cfg *config.Config, usePlanner bool) (*agent.Agent, error) {
	var vs store.VectorStore
	var err error
	switch cfg.RAG.Store {
	case config.StorePostgres:
		vs, err = store.NewPgStore(ctx, &cfg.Database)
	default:
		vs, err = store.NewChromemStore(cfg.RAG.DBPath, cfg.RAG.Collection, false)
	}
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	chat := llmservice.NewClient(&cfg.ChatLLM)
	r := rag.New(vs, embedder, chat, cfg)

	f := fetcher.New(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, cfg.FetchWorkers)
	sp := splitter.New(cfg.RAG.ChunkSize, cfg.RAG.Overlap())

	session := agent.NewSession(f, sp, r)
	return agent.New(session, chat, usePlanner), nil
}

// dryRunLoad fetches and chunks without touching the embedder or the store.
func dryRunLoad(ctx context.Context, cfg *config.Config, urlList string) {
	f := fetcher.New(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, cfg.FetchWorkers)
	docs, failed, err := f.FetchAll(ctx, fetcher.SplitURLList(urlList))
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading websites")
	}
	for _, fe := range failed {
		log.Warn().Err(fe).Msg("Source failed")
	}

	sp := splitter.New(cfg.RAG.ChunkSize, cfg.RAG.Overlap())
	chunks := sp.SplitDocuments(docs)
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Dry run complete")
	helper.PrettyPrint(chunks)
}
