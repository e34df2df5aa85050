package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/guiperry/llmcore/assistant"
	"github.com/guiperry/llmcore/contextstore"
	"github.com/guiperry/llmcore/inference"
	"github.com/guiperry/llmcore/internal/config"
	"github.com/guiperry/llmcore/internal/embedding"
	"github.com/guiperry/llmcore/splitter"
	"github.com/guiperry/llmcore/tokenizer"
)

// Version is set at compile time
var Version = "dev"

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	for model, size := range cfg.ContextSizes {
		if err := tokenizer.Register(model, tokenizer.Registration{Encoding: "cl100k_base", ContextSize: size}); err != nil {
			log.Printf("⚠️  context size override for %s ignored: %v", model, err)
		}
	}

	var err error
	switch os.Args[1] {
	case "summarize":
		err = runSummarize(cfg, os.Args[2:])
	case "ask":
		err = runAsk(cfg, os.Args[2:])
	case "verify":
		err = runVerify(cfg, os.Args[2:])
	case "version":
		fmt.Println("llmcore", Version)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: llmcore <command> [flags]

commands:
  summarize  -file <path> [-provider p] [-model m] [-fast] [-concurrency n]
  ask        -question <q> [-context-file <path>] [-provider p] [-model m]
  verify     -question <q> [-context-file <path>] [-provider p] [-model m] [-retrieve k]
  version`)
}

func runSummarize(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	file := fs.String("file", "", "document to summarize")
	provider := fs.String("provider", "openai", "completion provider")
	model := fs.String("model", "", "model identifier (provider default when empty)")
	fast := fs.Bool("fast", false, "single-result reduction instead of streaming every pass")
	concurrency := fs.Int("concurrency", cfg.Summarizer.Concurrency, "chunk summaries in flight at once")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}
	doc, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	completer, modelID, cleanup, err := buildCompleter(cfg, *provider, *model)
	if err != nil {
		return err
	}
	defer cleanup()

	summarizer, err := assistant.NewSummarizer(completer, modelID,
		assistant.WithTargetFraction(cfg.Summarizer.TargetFraction),
		assistant.WithChunkOverlap(cfg.Summarizer.ChunkOverlap),
		assistant.WithMinChunk(cfg.Summarizer.MinChunk),
		assistant.WithMaxPasses(cfg.Summarizer.MaxPasses),
		assistant.WithConcurrency(*concurrency),
		assistant.WithSummarizerLogger(log.Default()),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if *fast {
		summary, err := summarizer.FastSummarize(ctx, string(doc))
		if err != nil {
			return err
		}
		fmt.Println(summary.Text)
		return nil
	}

	stream := summarizer.Summarize(ctx, string(doc))
	var last string
	for stream.Next() {
		summary := stream.Current()
		log.Printf("pass %d summary (%d tokens)", summary.Pass, summary.Tokens)
		last = summary.Text
	}
	if err := stream.Err(); err != nil {
		return err
	}
	fmt.Println(last)
	return nil
}

func runAsk(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	question := fs.String("question", "", "question to answer")
	contextFile := fs.String("context-file", "", "optional context document")
	provider := fs.String("provider", "openai", "completion provider")
	model := fs.String("model", "", "model identifier (provider default when empty)")
	fs.Parse(args)

	if *question == "" {
		return fmt.Errorf("-question is required")
	}
	contextText, err := readOptional(*contextFile)
	if err != nil {
		return err
	}

	completer, modelID, cleanup, err := buildCompleter(cfg, *provider, *model)
	if err != nil {
		return err
	}
	defer cleanup()

	analyst, err := assistant.NewAnalyst(completer, modelID)
	if err != nil {
		return err
	}
	answer, err := analyst.Ask(context.Background(), *question, contextText)
	if err != nil {
		return err
	}
	fmt.Println(answer.Content)
	return nil
}

func runVerify(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	question := fs.String("question", "", "question to answer and verify")
	contextFile := fs.String("context-file", "", "optional context document")
	provider := fs.String("provider", "openai", "completion provider")
	model := fs.String("model", "", "model identifier (provider default when empty)")
	retrieve := fs.Int("retrieve", 0, "index the context and retrieve this many passages per verification question")
	fs.Parse(args)

	if *question == "" {
		return fmt.Errorf("-question is required")
	}
	contextText, err := readOptional(*contextFile)
	if err != nil {
		return err
	}

	completer, modelID, cleanup, err := buildCompleter(cfg, *provider, *model)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []assistant.PipelineOption{
		assistant.WithPipelineConcurrency(cfg.Summarizer.Concurrency),
		assistant.WithPipelineLogger(log.Default()),
	}

	ctx := context.Background()
	if *retrieve > 0 && contextText != "" {
		store, err := indexContext(ctx, cfg, modelID, contextText)
		if err != nil {
			return err
		}
		opts = append(opts, assistant.WithRetriever(store, *retrieve))
	}

	pipeline, err := assistant.NewPipeline(completer, modelID, opts...)
	if err != nil {
		return err
	}

	verified, err := pipeline.Run(ctx, *question, contextText)
	if verified != nil {
		fmt.Println("draft:", verified.Draft.Content)
		for _, claim := range verified.Claims {
			fmt.Printf("  [consistent=%v inferred=%v] %s -> %s\n",
				claim.Check.IsConsistent, claim.Check.IsInferredFromContext,
				claim.Question, claim.ReAnswer)
		}
		fmt.Println("supported:", verified.Supported())
	}
	return err
}

// indexContext chunks the context document into the store the pipeline
// retrieves per-question passages from.
func indexContext(ctx context.Context, cfg *config.Config, modelID, contextText string) (*contextstore.Store, error) {
	embedCfg := &embedding.Config{
		APIKey:   cfg.Providers.Embedding.APIKey,
		Endpoint: cfg.Providers.Embedding.Endpoint,
		Model:    cfg.Providers.Embedding.Model,
	}
	ef := embedding.NewClient(embedCfg, log.Default()).ChromemFunc()

	store, err := contextstore.NewStore(
		contextstore.WithPersistPath(cfg.Store.PersistPath),
		contextstore.WithCollection(cfg.Store.Collection),
		contextstore.WithEmbeddingFunc(ef),
		contextstore.WithLogger(log.Default()),
	)
	if err != nil {
		return nil, err
	}

	chunks, err := splitter.Chunkify(contextText, modelID, cfg.Summarizer.MinChunk*4, cfg.Summarizer.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if err := store.AddChunks(ctx, "context", chunks); err != nil {
		return nil, err
	}
	return store, nil
}

// buildCompleter wires the provider named on the command line. The cleanup
// closes the local session when one was opened.
func buildCompleter(cfg *config.Config, provider, model string) (inference.Completer, string, func(), error) {
	creds, err := cfg.Credentials(provider)
	if err != nil {
		return nil, "", nil, err
	}
	if model == "" {
		model = creds.Model
	}
	noop := func() {}

	switch strings.ToLower(provider) {
	case "anthropic":
		client := anthropic.NewClient(option.WithAPIKey(creds.APIKey))
		return inference.NewAnthropicBackend(&client, model, 0), model, noop, nil
	case "local":
		backend := inference.NewLocalBackend(creds.Endpoint, model, 0)
		session, err := backend.Open(context.Background())
		if err != nil {
			return nil, "", nil, err
		}
		return session, model, func() { session.Close() }, nil
	default:
		endpoint := strings.TrimSuffix(creds.Endpoint, "/") + "/chat/completions"
		return inference.NewRemoteBackend(provider, endpoint, creds.APIKey, model), model, noop, nil
	}
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
